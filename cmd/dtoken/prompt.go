package main

import (
	"bufio"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ghax-org/dtoken/internal/codec"
	"github.com/spf13/cobra"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Interactively build and encode a token",
	Long: `Prompt for each token field on the terminal. Empty input leaves an
optional field absent; invalid input re-prompts.`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	in := bufio.NewScanner(os.Stdin)
	var rec codec.Record

	for {
		switch ask(in, "Enter time precision (s/us) [s]") {
		case "", "s":
			rec.Precision = codec.Seconds
			rec.Timestamp = uint64(time.Now().Unix())
		case "us":
			rec.Precision = codec.Microseconds
			rec.Timestamp = uint64(time.Now().UnixMicro())
		default:
			fmt.Println("Invalid option.")
			continue
		}
		break
	}

	for {
		ans := ask(in, "Enter HTTP method (GET, POST, PUT, etc.) [GET]")
		if ans == "" {
			rec.Method = codec.GET
			break
		}
		if m, ok := codec.ParseMethod(ans); ok {
			rec.Method = m
			break
		}
		fmt.Println("Invalid option.")
	}

	rec.Client = promptEndpoint(in, "client")
	rec.LoadBalancer = promptEndpoint(in, "load balancer")
	rec.Server = promptEndpoint(in, "server")

	rec.ID1 = promptID(in, "generic id 1", codec.V0.ID1Bits)
	rec.ID2 = promptID(in, "generic id 2", codec.V0.ID2Bits)

	token, err := codec.Encode(rec)
	if err != nil {
		return err
	}

	fmt.Println()
	printSummary(rec)
	fmt.Printf("\nToken: %s\n", token)
	return nil
}

// ask prints the prompt and returns the next trimmed input line; EOF
// behaves like empty input.
func ask(in *bufio.Scanner, prompt string) string {
	fmt.Printf("%s: ", prompt)
	if !in.Scan() {
		fmt.Println()
		return ""
	}
	return strings.TrimSpace(in.Text())
}

func promptEndpoint(in *bufio.Scanner, name string) codec.Endpoint {
	var endpoint codec.Endpoint

	for {
		ans := ask(in, fmt.Sprintf("Enter %s IP address (leave empty for none)", name))
		if ans == "" {
			return endpoint
		}
		addr, err := netip.ParseAddr(ans)
		if err != nil {
			fmt.Println("Invalid address.")
			continue
		}
		endpoint.Addr = addr
		break
	}

	for {
		ans := ask(in, fmt.Sprintf("Enter %s port (leave empty for none)", name))
		if ans == "" {
			return endpoint
		}
		port, err := strconv.ParseUint(ans, 10, 64)
		if err != nil || port == 0 || port > 65535 {
			fmt.Println("Invalid port.")
			continue
		}
		endpoint.Port = uint16(port)
		return endpoint
	}
}

func promptID(in *bufio.Scanner, name string, bits uint) uint32 {
	for {
		ans := ask(in, fmt.Sprintf("Enter %s (leave empty for none)", name))
		if ans == "" {
			return 0
		}
		id, err := strconv.ParseUint(ans, 10, 64)
		if err != nil || id == 0 || id >= 1<<bits {
			fmt.Println("Invalid option.")
			continue
		}
		return uint32(id)
	}
}
