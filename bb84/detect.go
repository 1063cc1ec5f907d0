package bb84

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/alan-christopher/bb84sim/bb84/bitmap"
	"github.com/alan-christopher/bb84sim/bb84/photon"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// A Verdict is the outcome of checking a scenario's error rate against the
// detection threshold.
type Verdict int

const (
	// Accepted means the error rate was at or below the threshold, so the key
	// would be kept.
	Accepted Verdict = iota
	// Rejected means the error rate exceeded the threshold, so the channel is
	// presumed compromised.
	Rejected
)

func (v Verdict) String() string {
	if v == Rejected {
		return "rejected"
	}
	return "accepted"
}

// Classify returns Rejected iff errorRate is strictly greater than
// thresholdPercent.
func Classify(errorRate, thresholdPercent float64) Verdict {
	if errorRate > thresholdPercent {
		return Rejected
	}
	return Accepted
}

// A DetectionResult summarizes one analyzed scenario. Rates are percentages.
type DetectionResult struct {
	Scenario           string
	EvePresent         bool
	PhotonsTransmitted int
	SameBasisCases     int
	Errors             int
	ErrorRate          float64
	DisturbanceRate    float64

	// BitsCompared is min(SampleSize, SameBasisCases): the same-basis bits
	// publicly compared, and SampleErrors the mismatches among them.
	BitsCompared    int
	SampleErrors    int
	SampleErrorRate float64
	// ConfidenceLow and ConfidenceHigh bound SampleErrorRate at the
	// analyzer's confidence level.
	ConfidenceLow  float64
	ConfidenceHigh float64

	Verdict Verdict
}

// An Analysis pairs the baseline scenario with the eavesdropped one.
type Analysis struct {
	Baseline     DetectionResult
	Eavesdropped DetectionResult
	Threshold    float64
}

// Results returns both scenarios, baseline first.
func (a Analysis) Results() []DetectionResult {
	return []DetectionResult{a.Baseline, a.Eavesdropped}
}

// Detected reports whether the eavesdropper was caught.
func (a Analysis) Detected() bool {
	return a.Eavesdropped.Verdict == Rejected
}

// An AnalyzerOpts packages together the arguments necessary to construct an
// Analyzer.
type AnalyzerOpts struct {
	// PhotonCount is the number of photons sent in each scenario. Zero
	// photons yield all-zero results.
	PhotonCount int

	// SampleSize is the number of same-basis bits sacrificed for public
	// comparison. Defaults to DefaultSampleSize; negative means none.
	SampleSize int

	// ThresholdPercent is the error rate above which a scenario is rejected.
	// Must lie in [0, 100].
	ThresholdPercent float64

	// Confidence is the level of the interval reported around the sampled
	// error rate. Defaults to DefaultConfidence.
	Confidence float64

	// GateOnSample classifies on the sampled error rate instead of the error
	// rate over every same-basis photon.
	GateOnSample bool

	// Rand seeds every scenario and every sample. Must be non-nil.
	Rand *rand.Rand

	// Sources, if non-nil, supplies the parties' randomness for a scenario
	// in place of sources derived from Rand. NewAnalyzer calls it once per
	// scenario to check that every party it needs is present.
	Sources func(eavesdropper bool) photon.Sources
}

// An Analyzer compares a clean exchange against an eavesdropped one.
type Analyzer struct {
	opts AnalyzerOpts
	z    float64
}

// NewAnalyzer returns a new Analyzer, configured in accordance with opts, or
// an error if the options are nonsensical.
func NewAnalyzer(opts AnalyzerOpts) (*Analyzer, error) {
	if opts.Rand == nil {
		return nil, errors.New("must provide Rand")
	}
	if opts.PhotonCount < 0 {
		return nil, fmt.Errorf("photon count must not be negative, got %d", opts.PhotonCount)
	}
	if opts.Sources != nil {
		for _, eavesdropper := range []bool{false, true} {
			if err := opts.Sources(eavesdropper).Validate(eavesdropper); err != nil {
				return nil, fmt.Errorf("sources for %s scenario: %w", scenarioName(eavesdropper), err)
			}
		}
	}
	if opts.SampleSize == 0 {
		opts.SampleSize = DefaultSampleSize
	}
	if opts.SampleSize < 0 {
		opts.SampleSize = 0
	}
	if opts.ThresholdPercent < 0 || opts.ThresholdPercent > 100 || math.IsNaN(opts.ThresholdPercent) {
		return nil, fmt.Errorf("threshold must lie in [0, 100], got %v", opts.ThresholdPercent)
	}
	if opts.Confidence == 0 {
		opts.Confidence = DefaultConfidence
	}
	if opts.Confidence <= 0 || opts.Confidence >= 1 {
		return nil, fmt.Errorf("confidence must lie in (0, 1), got %v", opts.Confidence)
	}
	return &Analyzer{
		opts: opts,
		z:    distuv.UnitNormal.Quantile(1 - (1-opts.Confidence)/2),
	}, nil
}

// Analyze runs the baseline and the eavesdropped scenario to completion and
// classifies each.
func (a *Analyzer) Analyze() Analysis {
	an := Analysis{
		Baseline:     a.scenario(false),
		Eavesdropped: a.scenario(true),
		Threshold:    a.opts.ThresholdPercent,
	}
	logrus.WithFields(logrus.Fields{
		"photons":        a.opts.PhotonCount,
		"threshold":      a.opts.ThresholdPercent,
		"baseline_qber":  an.Baseline.ErrorRate,
		"eavesdrop_qber": an.Eavesdropped.ErrorRate,
		"detected":       an.Detected(),
	}).Info("Completed eavesdropping analysis")
	return an
}

func (a *Analyzer) scenario(eavesdropper bool) DetectionResult {
	var src photon.Sources
	if a.opts.Sources != nil {
		src = a.opts.Sources(eavesdropper)
	} else {
		src = photon.NewSimulatedSources(a.opts.Rand.Int63())
	}
	events := make([]Event, 0, a.opts.PhotonCount)
	for i := 1; i <= a.opts.PhotonCount; i++ {
		events = append(events, Generate(i, eavesdropper, src, SenderKeyBit))
	}
	return a.Evaluate(events, eavesdropper)
}

// Evaluate computes the DetectionResult of an already generated scenario.
func (a *Analyzer) Evaluate(events []Event, eavesdropper bool) DetectionResult {
	s := Replay(events)
	r := DetectionResult{
		Scenario:           scenarioName(eavesdropper),
		EvePresent:         eavesdropper,
		PhotonsTransmitted: s.TotalPhotons,
		SameBasisCases:     s.SameBasisCases,
		Errors:             s.Errors,
		ErrorRate:          s.ErrorRate(),
		DisturbanceRate:    s.DisturbanceRate(),
	}

	sampled, err := sampleErrors(events, a.opts.SampleSize, a.opts.Rand.Int63())
	if err != nil {
		// sampleErrors only slices within bounds it computed itself.
		panic(fmt.Sprintf("BUG: sampling same-basis errors: %v", err))
	}
	r.BitsCompared = sampled.Size()
	r.SampleErrors = bitmap.CountOnes(sampled)
	r.SampleErrorRate = percent(r.SampleErrors, r.BitsCompared)
	r.ConfidenceLow, r.ConfidenceHigh = a.interval(r.SampleErrors, r.BitsCompared)

	rate := r.ErrorRate
	if a.opts.GateOnSample {
		rate = r.SampleErrorRate
	}
	r.Verdict = Classify(rate, a.opts.ThresholdPercent)
	return r
}

// interval returns a normal-approximation confidence interval, in percent,
// around k/n.
func (a *Analyzer) interval(k, n int) (lo, hi float64) {
	if n == 0 {
		return 0, 0
	}
	p := float64(k) / float64(n)
	half := a.z * math.Sqrt(p*(1-p)/float64(n))
	return 100 * math.Max(0, p-half), 100 * math.Min(1, p+half)
}

// sampleErrors returns an error mask (1 meaning the bits disagree) over k
// randomly chosen same-basis events, or over all of them if there are fewer
// than k.
func sampleErrors(events []Event, k int, seed int64) (bitmap.Dense, error) {
	var mask bitmap.Dense
	for _, e := range events {
		if e.BasesMatch {
			mask.AppendBit(e.Error())
		}
	}
	n := mask.Size()
	if k > n {
		k = n
	}
	mask.Shuffle(rand.New(rand.NewSource(seed)))
	return bitmap.Slice(mask, n-k, n)
}

func scenarioName(eavesdropper bool) string {
	if eavesdropper {
		return "With Eve"
	}
	return "Without Eve"
}
