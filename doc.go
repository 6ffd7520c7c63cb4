/*Package tello provides a command session for the Ryze Tello® drone over its SDK text protocol.

Disclaimer

Tello is a registered trademark of Ryze Tech.  The author(s) of this package is/are in no way affiliated with Ryze, DJI, or Intel.

Use this package at your own risk.  The author(s) is/are in no way responsible for any damage caused either to or by the
drone when using this software.

Features

The following features have been implemented...
  * SDK mode entry and a keep-alive heartbeat, so the drone does not land itself
  * Built-in flight commands, eg. TakeOff(), Land()
  * Macro-level flight control, eg. Forward(), Up(), Clockwise()
  * Virtual-stick input turned into discrete moves, see ApplySticks()
  * Raw telemetry lines from the state port
  * Video stream relay to an external decoder, with decoded frames handed back as images
  * An optional on-disk flight log of every exchange and telemetry line

Concepts

Connections

The drone listens for commands on UDP port 8889 and answers each with "ok" or an error text.
It broadcasts its state to local port 8890 and, after "streamon", raw H.264 video to local port 11111.
The CommandChannel owns the command socket, a StateListener the state port, and a VideoRelay the video port.
A Session starts and stops all of them together.

One Command at a Time

Replies carry no identifier, so only one command is ever in flight.  Later commands wait in a FIFO queue
and each is given to the drone as soon as its predecessor is answered or its 500ms deadline passes.
Every command's ResultFunc is called exactly once, in submission order, with nil for "ok", ErrTimeout,
ErrCancelled, ErrNotConnected, a *ReplyError holding the drone's own text, or an *IOError.

Callbacks run on the channel's delivery goroutine, never while its lock is held, so they may submit
further commands.  They should not block for long as later results wait behind them.

*/
package tello
