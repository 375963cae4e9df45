// Command evmsimrpc serves the simulator's EthApi as plain JSON over a TCP
// socket: one request read, one response written, then the connection
// closes. There is no length-prefix framing.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/empower1/evmsim/internal/evmcore"
	"github.com/empower1/evmsim/internal/simulator"
)

// version is set at build time in a real release pipeline; left as a
// constant here since this simulator has no release process of its own.
const version = "0.1.0"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evmsimrpc",
		Short: "Serve the evm simulator's EthApi over TCP",
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the evmsimrpc version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Listen for JSON requests, one per connection, and serve them against the simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":7070", "address to listen on")
	return cmd
}

func serve(addr string) error {
	sim, err := simulator.New()
	if err != nil {
		return fmt.Errorf("building simulator: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	defer ln.Close()

	fmt.Printf("evmsimrpc listening on %s\n", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go handleConn(conn, sim)
	}
}

// request and response mirror the EthApi surface as a single JSON object per
// connection: {"method": ..., "params": {...}} in, {"status": "ok"|"error",
// "result": ...} out.
type request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type response struct {
	Status string      `json:"status"`
	Result interface{} `json:"result"`
}

// simMu serialises requests against the simulator, whose State does not
// order concurrent transactions itself.
var simMu sync.Mutex

func handleConn(conn net.Conn, sim *simulator.Simulator) {
	defer conn.Close()

	var req request
	if err := json.NewDecoder(conn).Decode(&req); err != nil && err != io.EOF {
		writeResponse(conn, errorResponse(err))
		return
	}

	simMu.Lock()
	resp := handle(sim, req)
	simMu.Unlock()
	writeResponse(conn, resp)
}

func writeResponse(w io.Writer, resp response) {
	body, err := json.Marshal(resp)
	if err != nil {
		body, _ = json.Marshal(errorResponse(err))
	}
	w.Write(body)
}

func errorResponse(err error) response {
	return response{Status: "error", Result: err.Error()}
}

func okResponse(v interface{}) response {
	return response{Status: "ok", Result: v}
}

func handle(sim *simulator.Simulator, req request) response {
	switch req.Method {
	case "account_add":
		var p struct{ Name string }
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(err)
		}
		info := sim.AccountAdd(p.Name)
		return okResponse(info)

	case "account_list":
		return okResponse(sim.AccountList())

	case "account_balance":
		var p struct{ Name string }
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(err)
		}
		bal, err := sim.AccountBalance(p.Name)
		if err != nil {
			return errorResponse(err)
		}
		return okResponse(bal)

	case "tx_send":
		var p struct {
			From, To string
			Value    uint64
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(err)
		}
		if err := sim.TxSend(p.From, p.To, p.Value); err != nil {
			return errorResponse(err)
		}
		return okResponse(true)

	case "contract_deploy":
		var p struct {
			From, Name, Code string
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(err)
		}
		code, err := evmcore.DecodeHex(p.Code)
		if err != nil {
			return errorResponse(err)
		}
		if err := sim.ContractDeploy(p.From, p.Name, code); err != nil {
			return errorResponse(err)
		}
		return okResponse(true)

	case "contract_call":
		var p struct {
			From, Name, Data string
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(err)
		}
		var data evmcore.Bytes
		if p.Data != "" {
			decoded, err := evmcore.DecodeHex(p.Data)
			if err != nil {
				return errorResponse(err)
			}
			data = decoded
		}
		out, err := sim.ContractCall(p.From, p.Name, data)
		if err != nil {
			return errorResponse(err)
		}
		return okResponse(out.Hex())

	case "metrics":
		return okResponse(sim.Metrics())

	default:
		return errorResponse(fmt.Errorf("unknown method %q", req.Method))
	}
}
