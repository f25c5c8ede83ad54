/*
Qnav trains an agent to navigate a grid map from a start cell to a goal cell using epsilon-greedy
one-step Q-learning, and displays what it learned: the greedy policy and state values on the
console, learning curves as images, or a live page of the value function while training runs.

Usage:

	qnav train --config config.yaml --plot rewards.png
	qnav serve --port 8080 --map labyrinth

Every flag may also be given as a QNAV_ environment variable (QNAV_PORT=9090), or in a .env file.
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
