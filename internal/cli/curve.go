package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/padsynth/internal/curve"
)

// CurveOptions holds flags for the curve command.
type CurveOptions struct {
	*RootOptions
	Lo      float64
	Hi      float64
	Inverse bool
}

// CurvePoint is one mapped value.
type CurvePoint struct {
	Position float64 `json:"position"`
	Value    float64 `json:"value"`
}

// CurveResult lists mapped points over one range.
type CurveResult struct {
	Lo     float64      `json:"lo"`
	Hi     float64      `json:"hi"`
	Points []CurvePoint `json:"points"`
}

func (r CurveResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "range [%g, %g]\n", r.Lo, r.Hi)
	for _, p := range r.Points {
		fmt.Fprintf(&b, "  %.4f -> %.2f\n", p.Position, p.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewCurveCommand creates the curve command.
func NewCurveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CurveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "curve <value>...",
		Short: "Map slider positions to physical values",
		Long: `Map slider positions in [0, 1] onto a physical range along the
exponential curve used by the frequency slider. With --inverse the
arguments are physical values and their slider positions are printed.

The range defaults to PADSYNTH_FREQ_LO and PADSYNTH_FREQ_HI.

Examples:
  padsynth curve 0 0.25 0.5 1
  padsynth curve --lo 20 --hi 20000 0.5
  padsynth curve --inverse 440`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCurve(opts, args, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Lo, "lo", 0, "bottom of the range")
	cmd.Flags().Float64Var(&opts.Hi, "hi", 0, "top of the range")
	cmd.Flags().BoolVar(&opts.Inverse, "inverse", false, "map values back to positions")

	return cmd
}

func runCurve(opts *CurveOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	lo, hi := opts.Config.FreqLo, opts.Config.FreqHi
	if cmd.Flags().Changed("lo") {
		lo = opts.Lo
	}
	if cmd.Flags().Changed("hi") {
		hi = opts.Hi
	}
	r, err := curve.NewRange(lo, hi)
	if err != nil {
		_ = formatter.Error(ErrCodeArgs, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid range", err)
	}

	result := CurveResult{Lo: r.Lo, Hi: r.Hi, Points: make([]CurvePoint, 0, len(args))}
	for _, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			_ = formatter.Error(ErrCodeArgs, fmt.Sprintf("not a number: %q", arg), nil)
			return WrapExitError(ExitCommandError, "invalid argument", err)
		}
		if opts.Inverse {
			result.Points = append(result.Points, CurvePoint{Position: r.ToControlPos(v), Value: v})
		} else {
			result.Points = append(result.Points, CurvePoint{Position: v, Value: r.ToPhysical(v)})
		}
	}
	return formatter.Success(result)
}
