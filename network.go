// network.go

// Copyright (C) 2018  Steve Merrony
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

package tello

import (
	"errors"
	"net"
	"strconv"
	"syscall"
)

const (
	defaultTelloAddr        = "192.168.10.1"
	defaultTelloControlPort = 8889
	defaultLocalControlPort = 8889
	defaultLocalStatePort   = 8890
	defaultLocalVideoPort   = 11111
)

// the drone never sends more than one ethernet frame per datagram
const rxBufferSize = 1518

// dialControl opens the control socket from localPort (0 for any) to the drone.
func dialControl(udpAddr string, droneUDPPort int, localUDPPort int) (*net.UDPConn, error) {
	droneAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(udpAddr, strconv.Itoa(droneUDPPort)))
	if err != nil {
		return nil, err
	}
	localAddr, err := net.ResolveUDPAddr("udp", ":"+strconv.Itoa(localUDPPort))
	if err != nil {
		return nil, err
	}
	return net.DialUDP("udp", localAddr, droneAddr)
}

// listenLocal binds a receive-only socket on all interfaces at localUDPPort.
func listenLocal(localUDPPort int) (*net.UDPConn, error) {
	localAddr, err := net.ResolveUDPAddr("udp", ":"+strconv.Itoa(localUDPPort))
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp", localAddr)
}

// isTransientRead reports read errors that do not make the socket unusable.
// A connected UDP socket surfaces ICMP port-unreachable as ECONNREFUSED on the next read.
func isTransientRead(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
