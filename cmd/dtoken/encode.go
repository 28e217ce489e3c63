package main

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/ghax-org/dtoken/internal/codec"
	"github.com/spf13/cobra"
)

var encodeFlags struct {
	method     string
	precision  string
	timestamp  uint64
	client     string
	clientPort uint16
	lb         string
	lbPort     uint16
	server     string
	serverPort uint16
	id1        uint32
	id2        uint32
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a token from command-line flags",
	Long: `Encode a request token from explicit field values. Omitted fields are
absent from the token; an omitted timestamp means "now" in the selected
precision.`,
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	f := encodeCmd.Flags()
	f.StringVar(&encodeFlags.method, "method", "", "HTTP method (GET, POST, ...)")
	f.StringVar(&encodeFlags.precision, "precision", "s", "timestamp precision: s or us")
	f.Uint64Var(&encodeFlags.timestamp, "timestamp", 0, "timestamp value (0 means now)")
	f.StringVar(&encodeFlags.client, "client", "", "client IP address")
	f.Uint16Var(&encodeFlags.clientPort, "client-port", 0, "client port")
	f.StringVar(&encodeFlags.lb, "lb", "", "load balancer IP address")
	f.Uint16Var(&encodeFlags.lbPort, "lb-port", 0, "load balancer port")
	f.StringVar(&encodeFlags.server, "server", "", "server IP address")
	f.Uint16Var(&encodeFlags.serverPort, "server-port", 0, "server port")
	f.Uint32Var(&encodeFlags.id1, "id1", 0, "generic id 1")
	f.Uint32Var(&encodeFlags.id2, "id2", 0, "generic id 2")
}

func runEncode(cmd *cobra.Command, args []string) error {
	rec := codec.Record{ID1: encodeFlags.id1, ID2: encodeFlags.id2}

	switch encodeFlags.precision {
	case "s":
		rec.Precision = codec.Seconds
	case "us":
		rec.Precision = codec.Microseconds
	default:
		return fmt.Errorf("precision must be s or us, got %q", encodeFlags.precision)
	}

	rec.Timestamp = encodeFlags.timestamp
	if rec.Timestamp == 0 {
		rec.Timestamp = nowTimestamp(rec.Precision)
	}

	if encodeFlags.method != "" {
		m, ok := codec.ParseMethod(encodeFlags.method)
		if !ok {
			return fmt.Errorf("unknown HTTP method %q", encodeFlags.method)
		}
		rec.Method = m
	}

	var err error
	if rec.Client, err = buildEndpoint(encodeFlags.client, encodeFlags.clientPort); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	if rec.LoadBalancer, err = buildEndpoint(encodeFlags.lb, encodeFlags.lbPort); err != nil {
		return fmt.Errorf("load balancer: %w", err)
	}
	if rec.Server, err = buildEndpoint(encodeFlags.server, encodeFlags.serverPort); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	token, err := codec.Encode(rec)
	if err != nil {
		return err
	}

	printSummary(rec)
	fmt.Printf("\nToken: %s\n", token)
	return nil
}

func nowTimestamp(p codec.Precision) uint64 {
	if p == codec.Microseconds {
		return uint64(time.Now().UnixMicro())
	}
	return uint64(time.Now().Unix())
}

// buildEndpoint parses an optional address literal. An empty address with
// a nonzero port is an error; an empty address alone is an absent
// endpoint.
func buildEndpoint(address string, port uint16) (codec.Endpoint, error) {
	if address == "" {
		if port != 0 {
			return codec.Endpoint{}, fmt.Errorf("port %d given without an address", port)
		}
		return codec.Endpoint{}, nil
	}
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return codec.Endpoint{}, fmt.Errorf("invalid IP address %q", address)
	}
	return codec.Endpoint{Addr: addr, Port: port}, nil
}

func printSummary(rec codec.Record) {
	if rec.Precision == codec.Microseconds {
		fmt.Printf("Timestamp:     %.6f\n", float64(rec.Timestamp)/1e6)
	} else {
		fmt.Printf("Timestamp:     %d\n", rec.Timestamp)
	}
	if rec.Method != codec.MethodUnset {
		fmt.Printf("Method:        %s\n", rec.Method)
	}
	if rec.Client.Enabled() {
		fmt.Printf("Client:        %s\n", rec.Client)
	}
	if rec.LoadBalancer.Enabled() {
		fmt.Printf("Load balancer: %s\n", rec.LoadBalancer)
	}
	if rec.Server.Enabled() {
		fmt.Printf("Server:        %s\n", rec.Server)
	}
	if rec.ID1 != 0 {
		fmt.Printf("Generic id 1:  %d\n", rec.ID1)
	}
	if rec.ID2 != 0 {
		fmt.Printf("Generic id 2:  %d\n", rec.ID2)
	}
}
