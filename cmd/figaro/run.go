// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dsnet/golib/unitconv"
	"github.com/urfave/cli/v2"

	"github.com/figaro-vm/figaro/figaro"
)

var RunCmd = cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "Run EVM byte-code in a single call context",
	ArgsUsage: "<code-hex>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "interpreter",
			Usage: "the name of the interpreter configuration to use",
			Value: "rfvm",
		},
		&cli.StringFlag{
			Name:  "context",
			Usage: "JSON file providing the transaction, block, and state snapshot",
		},
		&cli.StringFlag{
			Name:  "input",
			Usage: "call data in hex, overriding the transaction data of the context file",
		},
		&cli.IntFlag{
			Name:  "repeat",
			Usage: "number of times the code is executed, for throughput measurements",
			Value: 1,
		},
	},
}

// executionContext is the on-disk form of the execution environment.
type executionContext struct {
	Transaction figaro.Transaction   `json:"transaction"`
	Block       figaro.Block         `json:"block"`
	State       figaro.StateSnapshot `json:"state"`
}

func doRun(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one code argument, got %d", ctx.Args().Len())
	}
	code, err := figaro.ParseData(ctx.Args().Get(0))
	if err != nil {
		return fmt.Errorf("invalid code: %w", err)
	}

	environment := executionContext{}
	if path := ctx.String("context"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &environment); err != nil {
			return fmt.Errorf("invalid context file: %w", err)
		}
	}
	if input := ctx.String("input"); input != "" {
		environment.Transaction.Data = input
	}

	world, err := environment.State.WorldState()
	if err != nil {
		return err
	}
	params, err := figaro.NewParameters(figaro.Code(code), environment.Transaction, environment.Block, world)
	if err != nil {
		return err
	}

	interpreter, err := figaro.NewInterpreter(ctx.String("interpreter"))
	if err != nil {
		return err
	}

	repeat := ctx.Int("repeat")
	if repeat < 1 {
		repeat = 1
	}

	var result figaro.Result
	start := time.Now()
	for i := 0; i < repeat; i++ {
		result, err = interpreter.Run(params)
		if err != nil {
			return err
		}
	}
	duration := time.Since(start)

	fmt.Printf("Outcome: %v\n", result.Outcome)
	if result.Output != nil {
		fmt.Printf("Output:  0x%x\n", []byte(result.Output))
	}
	fmt.Printf("Stack (%d elements, top first):\n", len(result.Stack))
	for i, word := range result.Stack {
		fmt.Printf("  [%4d] %v\n", i, word)
	}

	if repeat > 1 {
		rate := float64(repeat) / duration.Seconds()
		fmt.Printf("Executed %d runs in %v (~%s runs/s)\n",
			repeat, duration, unitconv.FormatPrefix(rate, unitconv.SI, 0))
	}

	if profiling, ok := interpreter.(figaro.ProfilingInterpreter); ok {
		profiling.DumpProfile()
	}

	return nil
}
