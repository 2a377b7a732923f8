// wsconn keeps a resilient WebSocket connection open from the command line.
//
// Lines read from stdin are sent as text frames; inbound frames are written
// to stdout. Logs go to stderr.
package main

func main() {
	Execute()
}
