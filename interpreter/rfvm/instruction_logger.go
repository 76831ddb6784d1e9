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
	"io"
	"os"
)

// loggingRunner is a runner that logs the execution of the contract code to
// an io.Writer. If no writer is provided with newLogger, the log will be
// written to os.Stdout.
type loggingRunner struct {
	log io.Writer
}

// newLogger creates a new logging runner that writes to the provided
// io.Writer.
func newLogger(writer io.Writer) loggingRunner {
	return loggingRunner{log: writer}
}

func (l loggingRunner) run(c *context) (status, error) {
	out := l.log
	if out == nil {
		out = os.Stdout
	}
	status := statusRunning
	var err error
	for status == statusRunning {
		// log format: <pc>, <op>, <top-of-stack>\n
		if c.pc < len(c.code) {
			top := "-empty-"
			if c.stack.len() > 0 {
				top = c.stack.peek().ToBig().String()
			}
			_, err = fmt.Fprintf(out, "%d, %v, %v\n", c.pc, OpCode(c.code[c.pc]), top)
			if err != nil {
				return status, err
			}
		}
		status, err = step(c)
		if err != nil {
			return status, err
		}
	}
	return status, nil
}
