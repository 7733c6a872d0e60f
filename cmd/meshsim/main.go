// Copyright (c) 2025, The meshsim Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// meshsim is the command-line front-end of the mesh network simulator:
// it loads a scenario file, validates it, runs the simulation and writes
// the metric exports.
//
// Exit codes: 0 on success, 1 on runtime or argument errors, 2 on scenario
// validation failure.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/simonlingoogle/go-simplelogger"
	"github.com/spf13/cobra"

	"github.com/meshsim/meshsim/cli"
	"github.com/meshsim/meshsim/firmware"
	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/progctx"
	"github.com/meshsim/meshsim/scenario"
	"github.com/meshsim/meshsim/simulation"
)

const version = "1.0.0"

const (
	exitOk               = 0
	exitRuntimeError     = 1
	exitValidationFailed = 2
)

type mainArgs struct {
	ConfigPath    string
	DurationS     uint32
	LogLevel      string
	OutputDir     string
	UI            string
	ValidateOnly  bool
	TimeScale     float64
	MetricsListen string
}

var args mainArgs

var rootCmd = &cobra.Command{
	Use:   "meshsim --config <scenario.yaml>",
	Short: "Deterministic discrete-event simulator for wireless mesh networks",
	Long: `meshsim replays a declared fault-injection timeline against a population of
virtual mesh nodes under configurable link conditions (latency, loss,
partitions), reproducibly from a seed and without physical hardware.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.RunE = func(cmd *cobra.Command, cliArgs []string) error {
		return run()
	}
	flags := rootCmd.Flags()
	flags.StringVar(&args.ConfigPath, "config", "", "scenario file to run (required)")
	flags.Uint32Var(&args.DurationS, "duration", 0, "override the scenario duration [s]")
	flags.StringVar(&args.LogLevel, "log-level", "INFO", "log level: DEBUG, INFO, WARN or ERROR")
	flags.StringVar(&args.OutputDir, "output", "results/", "directory for metric exports")
	flags.StringVar(&args.UI, "ui", "none", "user interface: none or terminal")
	flags.BoolVar(&args.ValidateOnly, "validate-only", false, "validate the scenario and exit")
	flags.Float64Var(&args.TimeScale, "time-scale", 0, "override the scenario time scale (> 0)")
	flags.StringVar(&args.MetricsListen, "metrics-listen", "", "serve live prometheus metrics on this address")
	_ = rootCmd.MarkFlagRequired("config")
}

type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func run() error {
	level, err := logger.ParseLevel(args.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	if args.TimeScale < 0 || (args.TimeScale == 0 && isFlagSet("time-scale")) {
		return fmt.Errorf("time-scale must be > 0")
	}
	if args.UI != "none" && args.UI != "terminal" {
		return fmt.Errorf("unknown ui %q, use none or terminal", args.UI)
	}

	scn, err := scenario.Load(args.ConfigPath)
	if err != nil {
		return err
	}

	firmware.RegisterBuiltins()
	if findings := scn.Validate(); len(findings) > 0 {
		fmt.Fprintf(os.Stderr, "scenario %s is invalid:\n", args.ConfigPath)
		for _, finding := range findings {
			fmt.Fprintf(os.Stderr, "  %s\n", finding.String())
		}
		return &exitCodeError{code: exitValidationFailed}
	}
	if args.ValidateOnly {
		fmt.Printf("scenario %s is valid\n", args.ConfigPath)
		return nil
	}

	ctx := progctx.New(context.Background())
	handleSignals(ctx)

	sim, err := simulation.NewSimulation(ctx, scn, &simulation.Config{
		DurationS:         args.DurationS,
		TimeScale:         args.TimeScale,
		OutputDir:         args.OutputDir,
		MetricsListenAddr: args.MetricsListen,
	})
	if err != nil {
		return err
	}

	if args.UI == "terminal" {
		console := cli.NewConsole(ctx, sim)
		ctx.WaitAdd("console", 1)
		go func() {
			defer ctx.WaitDone("console")
			console.Run()
		}()
	}

	if err = sim.Run(); err != nil {
		return err
	}
	ctx.Cancel("simulation done")
	ctx.Wait()
	return nil
}

func isFlagSet(name string) bool {
	return rootCmd.Flags().Changed(name)
}

func handleSignals(ctx *progctx.ProgCtx) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	ctx.WaitAdd("signal-handler", 1)
	go func() {
		defer ctx.WaitDone("signal-handler")
		defer signal.Stop(sigs)

		select {
		case sig := <-sigs:
			simplelogger.Infof("signal received: %v, stopping simulation", sig)
			ctx.Cancel(nil)
		case <-ctx.Done():
		}
	}()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if ec, ok := err.(*exitCodeError); ok {
			os.Exit(ec.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitRuntimeError)
	}
	os.Exit(exitOk)
}
