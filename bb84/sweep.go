package bb84

import (
	"context"
	"errors"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// A SweepOpts packages together the parameters of a Sweep.
type SweepOpts struct {
	// PhotonCounts lists the scenario sizes to analyze. Must be non-empty.
	PhotonCounts []int
	// Trials is the number of independent analyses per photon count.
	// Defaults to 1.
	Trials int

	SampleSize       int
	ThresholdPercent float64

	// Rand seeds every trial. Must be non-nil.
	Rand *rand.Rand
}

// A SweepPoint aggregates every trial run at a single photon count.
type SweepPoint struct {
	PhotonCount int
	Trials      int

	BaselineMean    float64
	BaselineStdDev  float64
	EavesdropMean   float64
	EavesdropStdDev float64

	// DetectionRate is the fraction of trials in which the eavesdropper was
	// caught, and FalseAlarmRate the fraction in which the clean channel was
	// rejected.
	DetectionRate  float64
	FalseAlarmRate float64
}

// Sweep repeats the eavesdropping analysis over a range of photon counts,
// showing how the two error rates separate as more photons are sent. ctx is
// checked between trials.
func Sweep(ctx context.Context, opts SweepOpts) ([]SweepPoint, error) {
	if opts.Rand == nil {
		return nil, errors.New("must provide Rand")
	}
	if len(opts.PhotonCounts) == 0 {
		return nil, errors.New("must provide at least one photon count")
	}
	trials := opts.Trials
	if trials <= 0 {
		trials = 1
	}

	var points []SweepPoint
	for _, n := range opts.PhotonCounts {
		a, err := NewAnalyzer(AnalyzerOpts{
			PhotonCount:      n,
			SampleSize:       opts.SampleSize,
			ThresholdPercent: opts.ThresholdPercent,
			Rand:             opts.Rand,
		})
		if err != nil {
			return nil, err
		}
		base := make([]float64, 0, trials)
		eve := make([]float64, 0, trials)
		var detected, falseAlarms int
		for i := 0; i < trials; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			an := a.Analyze()
			base = append(base, an.Baseline.ErrorRate)
			eve = append(eve, an.Eavesdropped.ErrorRate)
			if an.Detected() {
				detected++
			}
			if an.Baseline.Verdict == Rejected {
				falseAlarms++
			}
		}
		p := SweepPoint{
			PhotonCount:    n,
			Trials:         trials,
			DetectionRate:  float64(detected) / float64(trials),
			FalseAlarmRate: float64(falseAlarms) / float64(trials),
		}
		p.BaselineMean, p.BaselineStdDev = meanStdDev(base)
		p.EavesdropMean, p.EavesdropStdDev = meanStdDev(eve)
		points = append(points, p)
	}
	return points, nil
}

func meanStdDev(x []float64) (mean, std float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	return stat.MeanStdDev(x, nil)
}
