// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package rfvm

import (
	"fmt"

	"github.com/figaro-vm/figaro/figaro"
)

// Registers the raw-format EVM as a possible interpreter implementation.
func init() {
	configs := map[string]Config{
		// This is the officially supported RFVM interpreter configuration
		// to be used for production purposes.
		"rfvm": {
			WithShaCache: true,
		},

		// A variant validating that jump destinations mark JUMPDEST
		// instructions outside of push immediate data.
		"rfvm-strict": {
			WithJumpChecks: true,
			WithShaCache:   true,
		},
	}

	for name, config := range configs {
		config := config
		err := figaro.RegisterInterpreterFactory(name, func(any) (figaro.Interpreter, error) {
			return NewVM(config), nil
		})
		if err != nil {
			panic(fmt.Sprintf("failed to register interpreter: %v", err))
		}
	}
}

// RegisterExperimentalInterpreterConfigurations registers all experimental
// RFVM interpreter configurations to the interpreter registry. This function
// should not be called in production code, as the resulting VMs are not
// officially supported.
func RegisterExperimentalInterpreterConfigurations() error {
	for _, shaCache := range []string{"", "-no-sha-cache"} {
		for _, mode := range []string{"", "-stats", "-logging"} {

			config := Config{
				WithShaCache: shaCache != "-no-sha-cache",
			}

			if mode == "-stats" {
				config.runner = &statisticRunner{
					stats: newStatistics(),
				}
			} else if mode == "-logging" {
				config.runner = loggingRunner{}
			}

			name := "rfvm" + shaCache + mode
			if name != "rfvm" {
				err := figaro.RegisterInterpreterFactory(
					name,
					func(any) (figaro.Interpreter, error) {
						return NewVM(config), nil
					},
				)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Config contains the configuration options of an RFVM instance.
type Config struct {
	// WithJumpChecks enables the validation of jump destinations. By
	// default, jumps are taken without checking that the destination marks
	// a JUMPDEST instruction.
	WithJumpChecks bool
	// WithShaCache enables the re-use of SHA3 hashes computed for
	// frequently re-hashed input sizes.
	WithShaCache bool
	runner       runner
}

type rfvm struct {
	config Config
}

// NewVM creates a VM instance with the given configuration.
func NewVM(config Config) *rfvm {
	return &rfvm{config: config}
}

func (v *rfvm) Run(params figaro.Parameters) (figaro.Result, error) {
	config := interpreterConfig{
		withJumpChecks: v.config.WithJumpChecks,
		withShaCache:   v.config.WithShaCache,
		runner:         v.config.runner,
	}
	return run(config, params)
}

func (v *rfvm) DumpProfile() {
	if statsRunner, ok := v.config.runner.(*statisticRunner); ok {
		fmt.Print(statsRunner.getSummary())
	}
}

func (v *rfvm) ResetProfile() {
	if statsRunner, ok := v.config.runner.(*statisticRunner); ok {
		statsRunner.reset()
	}
}

// Execute runs the given code against the provided transaction envelope,
// state snapshot, and block header using the default VM configuration. It is
// the outer entry point wiring the hex boundary to the interpreter.
func Execute(code figaro.Code, tx figaro.Transaction, state figaro.StateSnapshot, block figaro.Block) (figaro.Result, error) {
	world, err := state.WorldState()
	if err != nil {
		return figaro.Result{}, err
	}
	params, err := figaro.NewParameters(code, tx, block, world)
	if err != nil {
		return figaro.Result{}, err
	}
	return NewVM(Config{WithShaCache: true}).Run(params)
}
