package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/heysubinoy/kvweb/internal/api"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const defaultAddr = "localhost:9090"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	addr := os.Getenv("KVWEB_GRPC_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	// Connect to gRPC server using passthrough resolver for direct address connection
	conn, err := grpc.NewClient("passthrough:///"+addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	client := api.NewKVClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	command := os.Args[1]

	switch command {
	case "get":
		if len(os.Args) < 3 {
			fmt.Println("Usage: kv-cli get <key>")
			os.Exit(1)
		}
		handleGet(ctx, client, os.Args[2])

	case "set":
		if len(os.Args) < 4 {
			fmt.Println("Usage: kv-cli set <key> <value>")
			os.Exit(1)
		}
		handleSet(ctx, client, os.Args[2], os.Args[3])

	case "delete":
		if len(os.Args) < 3 {
			fmt.Println("Usage: kv-cli delete <key>")
			os.Exit(1)
		}
		handleDelete(ctx, client, os.Args[2])

	case "keys":
		handleKeys(ctx, client)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleGet(ctx context.Context, client *api.KVClient, key string) {
	rec, err := client.Get(ctx, key)
	if status.Code(err) == codes.NotFound {
		fmt.Printf("Key '%s' not found\n", key)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Get failed: %v", err)
	}
	fmt.Println(rec.Value)
}

func handleSet(ctx context.Context, client *api.KVClient, key, value string) {
	msg, err := client.Store(ctx, key, value)
	if err != nil {
		log.Fatalf("Set failed: %v", status.Convert(err).Message())
	}
	fmt.Println(msg)
}

func handleDelete(ctx context.Context, client *api.KVClient, key string) {
	msg, err := client.Delete(ctx, key)
	if status.Code(err) == codes.NotFound {
		fmt.Printf("Key '%s' not found\n", key)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Delete failed: %v", err)
	}
	fmt.Println(msg)
}

func handleKeys(ctx context.Context, client *api.KVClient) {
	keys, err := client.Keys(ctx)
	if err != nil {
		log.Fatalf("Keys failed: %v", err)
	}
	for _, k := range keys {
		fmt.Println(k)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  kv-cli get <key>")
	fmt.Println("  kv-cli set <key> <value>")
	fmt.Println("  kv-cli delete <key>")
	fmt.Println("  kv-cli keys")
	fmt.Println("")
	fmt.Println("Environment variables:")
	fmt.Println("  KVWEB_GRPC_ADDR - kvweb gRPC address (default: " + defaultAddr + ")")
}
