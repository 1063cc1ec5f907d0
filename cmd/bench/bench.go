// bench.go runs an eavesdropping analysis for each entry in the cartesian
// product of a collection of tuning parameters, e.g. photons sent and
// detection threshold, and outputs a CSV of relevant statistics for each
// combination, e.g. error rates with and without an eavesdropper and whether
// the eavesdropper was caught.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"text/template"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/alan-christopher/bb84sim/bb84/photon"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

var (
	photons = flag.IntSlice("photons", []int{bb84.DefaultAnalysisPhotons},
		"The photons sent in each scenario.")
	sample    = flag.IntSlice("sample", []int{bb84.DefaultSampleSize}, "The same-basis bits compared publicly.")
	target    = flag.IntSlice("target", []int{bb84.DefaultTargetKeyBits}, "The key bits each scenario tries to collect.")
	threshold = flag.Float64Slice("threshold", []float64{bb84.DefaultThresholdPercent}, "The error rate, in percent, above which a key is rejected.")
	seed      = flag.Int64("seed", 1234, "Seed for every party in every experiment.")
)

var (
	inputs  = []string{"photons", "sample", "target", "threshold"}
	columns = []string{"Photons", "SampleSize", "TargetKeyBits", "ThresholdPercent",
		"BaselineQBER", "BaselineSampleQBER", "BaselineKeyBits",
		"EveQBER", "EveSampleQBER", "EveDisturbance", "EveKeyBits",
		"FalseAlarm", "Detected"}
)

// An Experiment packages together the result of benchmarking a single
// parameterization for easy formatting.
type Experiment struct {
	// Fields corresponding to experiment parameters
	Photons          int
	SampleSize       int
	TargetKeyBits    int
	ThresholdPercent float64

	// Fields corresponding to experiment results
	BaselineQBER       float64
	BaselineSampleQBER float64
	BaselineKeyBits    int
	EveQBER            float64
	EveSampleQBER      float64
	EveDisturbance     float64
	EveKeyBits         int
	FalseAlarm         bool
	Detected           bool
}

func main() {
	flag.Parse()
	fmt.Println(header())
	tmpl := template.Must(template.New("line").Parse(lineTmpl()))
	var args [][]interface{}
	for _, inp := range inputs {
		args = append(args, lookupInput(inp))
	}
	applyCartesian(func(args []interface{}) {
		exp := &Experiment{
			Photons:          args[inpIndex("photons")].(int),
			SampleSize:       args[inpIndex("sample")].(int),
			TargetKeyBits:    args[inpIndex("target")].(int),
			ThresholdPercent: args[inpIndex("threshold")].(float64),
		}
		if err := bench(exp, *seed); err != nil {
			logrus.WithError(err).Errorf("Benching %+v", *exp)
		}
		if err := tmpl.Execute(os.Stdout, exp); err != nil {
			logrus.Fatalf("BUG: could not fill in line template: %v", err)
		}
	}, args)
}

func inpIndex(v string) int {
	for i, inp := range inputs {
		if inp == v {
			return i
		}
	}
	return -1
}

func bench(exp *Experiment, seed int64) error {
	sources := func(eavesdropper bool) photon.Sources {
		if eavesdropper {
			return photon.NewSimulatedSources(seed + 1)
		}
		return photon.NewSimulatedSources(seed)
	}
	sampleSize := exp.SampleSize
	if sampleSize == 0 {
		sampleSize = -1
	}
	a, err := bb84.NewAnalyzer(bb84.AnalyzerOpts{
		PhotonCount:      exp.Photons,
		SampleSize:       sampleSize,
		ThresholdPercent: exp.ThresholdPercent,
		Rand:             rand.New(rand.NewSource(seed)),
		Sources:          sources,
	})
	if err != nil {
		return err
	}
	an := a.Analyze()
	exp.BaselineQBER = an.Baseline.ErrorRate
	exp.BaselineSampleQBER = an.Baseline.SampleErrorRate
	exp.EveQBER = an.Eavesdropped.ErrorRate
	exp.EveSampleQBER = an.Eavesdropped.SampleErrorRate
	exp.EveDisturbance = an.Eavesdropped.DisturbanceRate
	exp.FalseAlarm = an.Baseline.Verdict == bb84.Rejected
	exp.Detected = an.Detected()

	// Key lengths come from fresh runs over the same parties, so they line up
	// with the analysis above.
	for _, eavesdropper := range []bool{false, true} {
		run, err := bb84.NewRun(bb84.RunOptions{
			Sources:       sources(eavesdropper),
			Eavesdropper:  eavesdropper,
			TargetKeyBits: exp.TargetKeyBits,
			MaxPhotons:    exp.Photons,
		})
		if err != nil {
			return err
		}
		if err := run.Finish(nil); err != nil {
			return err
		}
		if eavesdropper {
			exp.EveKeyBits = run.Key().Size()
		} else {
			exp.BaselineKeyBits = run.Key().Size()
		}
	}
	return nil
}

func header() string {
	return strings.Join(columns, ", ")
}

func lineTmpl() string {
	var els []string
	for _, c := range columns {
		els = append(els, "{{."+c+"}}")
	}
	return strings.Join(els, ", ") + "\n"
}

func lookupInput(name string) []interface{} {
	var r []interface{}
	if v, err := flag.CommandLine.GetIntSlice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else if v, err := flag.CommandLine.GetFloat64Slice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else {
		logrus.Fatalf("Unknown type for input %s", name)
	}
	return r
}

func applyCartesian(f func([]interface{}), args [][]interface{}) {
	for i := range args {
		if len(args[i]) == 1 {
			continue
		}
		l := make([][]interface{}, len(args))
		r := make([][]interface{}, len(args))
		copy(l, args)
		copy(r, args)
		l[i] = args[i][:1]
		r[i] = args[i][1:]
		applyCartesian(f, l)
		applyCartesian(f, r)
		return
	}
	x := make([]interface{}, 0, len(args))
	for _, a := range args {
		x = append(x, a[0])
	}
	f(x)
}
