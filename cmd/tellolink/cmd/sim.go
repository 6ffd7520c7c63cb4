// sim.go

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
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sdm-ifsp/tello/internal/dronesim"
)

var (
	simListen        string
	simStateTo       string
	simStateInterval time.Duration
	simRefuse        []string
	simIgnore        []string
	simLatency       time.Duration
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run a simulated drone on this machine",
	Long: `Run a simulated drone that answers SDK commands and broadcasts telemetry.

Point a session at it with drone.address 127.0.0.1 and a local_command_port
other than the simulator's own port, eg. 0.`,
	Example: `  tellolink sim --listen 127.0.0.1:8889 --refuse flip --ignore emergency
  TELLO_DRONE_ADDRESS=127.0.0.1 TELLO_DRONE_LOCAL_COMMAND_PORT=0 tellolink run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		replies := map[string]dronesim.Reply{}
		for _, w := range simRefuse {
			replies[w] = dronesim.Reply{Text: "error", Delay: simLatency}
		}
		for _, w := range simIgnore {
			replies[w] = dronesim.Reply{Silent: true}
		}
		drone, err := dronesim.Listen(simListen, dronesim.Script(replies, dronesim.Reply{Text: "ok", Delay: simLatency}), logger)
		if err != nil {
			return err
		}
		defer drone.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stateTo := simStateTo
		if stateTo == "" {
			stateTo = net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Drone.StatePort))
		}
		ticker := time.NewTicker(simStateInterval)
		defer ticker.Stop()

		battery, height, ticks := 100, 0, 0
		for {
			select {
			case <-ctx.Done():
				logger.Info("simulator stopped", zap.Int("commands", len(drone.Received())))
				return nil
			case cmdText := <-drone.Commands():
				switch cmdText {
				case "takeoff":
					height = 80
				case "land":
					height = 0
				}
			case <-ticker.C:
				if err := dronesim.BroadcastTelemetry(stateTo, dronesim.StateLine(battery, height, height+10)); err != nil {
					logger.Debug("telemetry not sent", zap.Error(err))
				}
				// about one percent every 30s at the default interval
				if ticks++; ticks%300 == 0 && battery > 0 {
					battery--
				}
			}
		}
	},
}

func init() {
	simCmd.Flags().StringVar(&simListen, "listen", "127.0.0.1:8889", "address to answer commands on")
	simCmd.Flags().StringVar(&simStateTo, "state-to", "", "where to send telemetry (default 127.0.0.1:<drone.state_port>)")
	simCmd.Flags().DurationVar(&simStateInterval, "state-interval", 100*time.Millisecond, "telemetry broadcast interval")
	simCmd.Flags().StringSliceVar(&simRefuse, "refuse", nil, "command words answered with \"error\"")
	simCmd.Flags().StringSliceVar(&simIgnore, "ignore", nil, "command words never answered")
	simCmd.Flags().DurationVar(&simLatency, "latency", 20*time.Millisecond, "delay before each reply")
}
