// Command evmsimrepl is a line-oriented REPL over the simulator's EthApi.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/empower1/evmsim/internal/evmcore"
	"github.com/empower1/evmsim/internal/simulator"
)

func main() {
	sim, err := simulator.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "evmsimrepl:", err)
		os.Exit(1)
	}

	fmt.Println("evmsimrepl - type 'help' for commands, 'exit' to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := dispatch(sim, line); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func dispatch(sim *simulator.Simulator, line string) error {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "help":
		printHelp()
	case "exit", "quit":
		os.Exit(0)
	case "account_add":
		if len(args) != 1 {
			return fmt.Errorf("usage: account_add <name>")
		}
		info := sim.AccountAdd(args[0])
		fmt.Printf("%s %s balance=%d\n", info.Name, info.Address.Hex(), info.Balance)
	case "account_list":
		for _, info := range sim.AccountList() {
			fmt.Printf("%s %s type=%s balance=%d\n", info.Name, info.Address.Hex(), info.Type, info.Balance)
		}
	case "account_balance":
		if len(args) != 1 {
			return fmt.Errorf("usage: account_balance <name>")
		}
		bal, err := sim.AccountBalance(args[0])
		if err != nil {
			return err
		}
		fmt.Println(bal)
	case "tx_send":
		if len(args) != 3 {
			return fmt.Errorf("usage: tx_send <from> <to> <value>")
		}
		value, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value: %w", err)
		}
		return sim.TxSend(args[0], args[1], value)
	case "contract_deploy":
		if len(args) != 3 {
			return fmt.Errorf("usage: contract_deploy <from> <name> <hexcode>")
		}
		code, err := evmcore.DecodeHex(args[2])
		if err != nil {
			return fmt.Errorf("invalid code: %w", err)
		}
		return sim.ContractDeploy(args[0], args[1], code)
	case "contract_call":
		if len(args) < 2 {
			return fmt.Errorf("usage: contract_call <from> <name> [hexdata]")
		}
		var data evmcore.Bytes
		if len(args) == 3 {
			decoded, err := evmcore.DecodeHex(args[2])
			if err != nil {
				return fmt.Errorf("invalid calldata: %w", err)
			}
			data = decoded
		}
		out, err := sim.ContractCall(args[0], args[1], data)
		if err != nil {
			return err
		}
		fmt.Println(out.Hex())
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
	return nil
}

func printHelp() {
	fmt.Println(`commands:
  account_add <name>
  account_list
  account_balance <name>
  tx_send <from> <to> <value>
  contract_deploy <from> <name> <hexcode>
  contract_call <from> <name> [hexdata]
  exit`)
}
