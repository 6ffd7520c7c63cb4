// send.go

// Copyright (C) 2026  The tellolink Authors

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdm-ifsp/tello"
)

var sendCmd = &cobra.Command{
	Use:   "send <command> [args...]",
	Short: "Enter SDK mode, send one command and print the result",
	Example: `  tellolink send takeoff
  tellolink send forward 50
  tellolink send raw "speed 40"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch := tello.NewCommandChannel(channelConfig(cfg, logger))
		if err := ch.Connect(); err != nil {
			return err
		}
		defer ch.Disconnect()

		// sticks can queue up to four commands behind the probe
		results := make(chan error, 5)
		report := func(c tello.Command, err error) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", c.Text, outcome(err))
			results <- err
		}

		ch.Probe(report)
		if err := dispatch(ch, args, report); err != nil {
			return err
		}
		probeErr, cmdErr := <-results, <-results
		if probeErr != nil {
			return fmt.Errorf("drone did not enter SDK mode: %w", probeErr)
		}
		var reply *tello.ReplyError
		if errors.As(cmdErr, &reply) {
			return fmt.Errorf("drone refused %q", args[0])
		}
		return cmdErr
	},
}
