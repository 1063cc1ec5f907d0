package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/alan-christopher/bb84sim/bb84/photon"
	"github.com/alan-christopher/bb84sim/config"
	"github.com/spf13/cobra"
)

type simulateFlags struct {
	photons    int
	speed      string
	target     int
	eve        bool
	convention string
	noPace     bool
	quiet      bool
	transcript string
	keyOut     string
}

func (f *simulateFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.photons, "photons", 0, "Photon budget, one of 128, 256, 512, 720, 1024")
	fs.StringVar(&f.speed, "speed", "", "Transmission speed: slow, medium or fast")
	fs.IntVar(&f.target, "target", 0, "Key bits to collect before stopping")
	fs.BoolVar(&f.eve, "eve", false, "Place an intercept-resend eavesdropper on the channel")
	fs.StringVar(&f.convention, "convention", "", "Whose bit is kept when bases agree: sender or receiver")
	fs.BoolVar(&f.noPace, "no-pace", false, "Send photons as fast as possible")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "Only print the summary")
	fs.StringVar(&f.transcript, "transcript", "", "Write every photon event to this file")
	fs.StringVar(&f.keyOut, "key-out", "", "Write the shared key to this file")
}

// apply overlays any flags the user set onto the configured simulation.
func (f *simulateFlags) apply(cmd *cobra.Command, sim config.Simulation) (config.Simulation, error) {
	fs := cmd.Flags()
	if fs.Changed("photons") {
		sim.PhotonCount = f.photons
	}
	if fs.Changed("speed") {
		sim.Speed = f.speed
	}
	if fs.Changed("target") {
		sim.TargetKeyBits = f.target
	}
	if fs.Changed("eve") {
		sim.Eavesdropper = f.eve
	}
	if fs.Changed("convention") {
		sim.KeyConvention = f.convention
	}
	cfg := config.Default()
	cfg.Simulation = sim
	if err := cfg.Validate(); err != nil {
		return sim, err
	}
	if f.noPace {
		sim.Speed = ""
	}
	return sim, nil
}

// newRun builds a run from sim with every party seeded from seed.
func newRun(sim config.Simulation, seed int64) (*bb84.Run, error) {
	conv, err := bb84.ParseKeyConvention(sim.KeyConvention)
	if err != nil {
		return nil, err
	}
	return bb84.NewRun(bb84.RunOptions{
		Sources:       photon.NewSimulatedSources(seed),
		Eavesdropper:  sim.Eavesdropper,
		TargetKeyBits: sim.TargetKeyBits,
		MaxPhotons:    sim.PhotonCount,
		KeyConvention: conv,
	})
}

func newSimulateCmd(e *env) *cobra.Command {
	var f simulateFlags
	cmd := &cobra.Command{
		Use:     "simulate",
		Aliases: []string{"sim"},
		Short:   "Exchange a key one photon at a time",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := f.apply(cmd, e.cfg.Simulation)
			if err != nil {
				return err
			}
			return e.simulate(cmd, sim, &f)
		},
	}
	f.register(cmd)
	return cmd
}

func newEavesdropCmd(e *env) *cobra.Command {
	var f simulateFlags
	cmd := &cobra.Command{
		Use:   "eavesdrop",
		Short: "Exchange a key with an eavesdropper intercepting every photon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := f.apply(cmd, e.cfg.Simulation)
			if err != nil {
				return err
			}
			sim.Eavesdropper = true
			return e.simulate(cmd, sim, &f)
		},
	}
	f.register(cmd)
	cmd.Flags().MarkHidden("eve")
	return cmd
}

func (e *env) simulate(cmd *cobra.Command, sim config.Simulation, f *simulateFlags) error {
	run, err := newRun(sim, e.seedValue())
	if err != nil {
		return err
	}

	var (
		tw   *bb84.TranscriptWriter
		buf  *bufio.Writer
		file *os.File
	)
	if f.transcript != "" {
		file, err = os.Create(f.transcript)
		if err != nil {
			return fmt.Errorf("creating transcript: %w", err)
		}
		// Only reached on early returns; the happy path closes explicitly.
		defer file.Close()
		buf = bufio.NewWriter(file)
		tw = bb84.NewTranscriptWriter(buf)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	if !f.quiet {
		fmt.Fprintln(out, photonHeader)
	}
	p := newPacer(sim.Interval())
	stopped := false
	for !run.Done() {
		if err := p.wait(ctx); err != nil {
			// Interrupted: report what was exchanged so far.
			stopped = true
			break
		}
		ev, err := run.Advance()
		if err != nil {
			return err
		}
		if !f.quiet {
			fmt.Fprintln(out, photonRow(ev))
		}
		if tw != nil {
			if err := tw.Write(ev); err != nil {
				return err
			}
		}
	}

	if file != nil {
		if err := buf.Flush(); err != nil {
			return fmt.Errorf("writing transcript: %w", err)
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("closing transcript: %w", err)
		}
	}

	snap := e.state.PublishRun(run)
	printSummary(out, snap.Stats, snap.Key, sim.Eavesdropper, stopped)
	if f.keyOut != "" {
		if err := os.WriteFile(f.keyOut, []byte(snap.Key.String()+"\n"), 0o600); err != nil {
			return fmt.Errorf("writing key: %w", err)
		}
	}
	return nil
}

func printSummary(w io.Writer, s bb84.Stats, key bb84.Key, eavesdropper, stopped bool) {
	fmt.Fprintln(w)
	if stopped {
		fmt.Fprintln(w, "Simulation stopped.")
	}
	fmt.Fprintln(w, statsTable(s, eavesdropper))
	fmt.Fprintf(w, "\nShared key (%d of %d bits):\n%s\n", key.Size(), key.Target(), formatKey(key.String()))
	if !key.Complete() {
		fmt.Fprintln(w, "Photon budget exhausted before the key was complete.")
	}
}

// sharedKey returns the key the user supplied, or else the one a run seeded
// by the configuration produces.
func (e *env) sharedKey(cmd *cobra.Command, key, keyFile string) (string, error) {
	if key != "" && keyFile != "" {
		return "", errors.New("--key and --key-file are mutually exclusive")
	}
	if keyFile != "" {
		b, err := os.ReadFile(keyFile)
		if err != nil {
			return "", err
		}
		return trimKey(string(b)), nil
	}
	if key != "" {
		return trimKey(key), nil
	}
	if k := e.state.SharedKey(); k != "" {
		return k, nil
	}
	if e.cfg.Seed == 0 {
		return "", errors.New("no key given: pass --key, --key-file, or --seed to derive one")
	}
	run, err := newRun(e.cfg.Simulation, e.cfg.Seed)
	if err != nil {
		return "", err
	}
	if err := run.Finish(nil); err != nil {
		return "", err
	}
	return e.state.PublishRun(run).Key.String(), nil
}
