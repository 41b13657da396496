package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"jogosescolares/internal/authz"
	"jogosescolares/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	fgaClient, err := authz.NewClient(logger, cfg.OpenFGA)
	if err != nil {
		panic(err)
	}

	switch command {
	case "create-store":
		handleCreateStore(ctx, fgaClient, os.Args[2:])
	case "write-model":
		handleWriteModel(ctx, fgaClient)
	case "print-model":
		handlePrintModel()
	default:
		printUsage()
	}
}

func handleCreateStore(ctx context.Context, fgaClient *authz.Client, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: openfga create-store <name>")
		return
	}

	id, err := fgaClient.CreateStore(ctx, args[0])
	if err != nil {
		panic(err)
	}

	fmt.Printf("Created store with ID: %s\n", id)
	fmt.Println("Set OPENFGA_STORE_ID to this value before writing the model.")
}

func handleWriteModel(ctx context.Context, fgaClient *authz.Client) {
	modelID, err := fgaClient.WriteAuthorizationModel(ctx)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Authorization model written with ID: %s\n", modelID)
}

func handlePrintModel() {
	model, err := authz.Model()
	if err != nil {
		panic(err)
	}

	out, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		panic(err)
	}
	fmt.Println(string(out))
}

func printUsage() {
	fmt.Println("Usage: openfga <command>")
	fmt.Println("Commands:")
	fmt.Println("  create-store <name>    Create a new OpenFGA store")
	fmt.Println("  write-model            Write the event role model to the configured store")
	fmt.Println("  print-model            Print the embedded authorization model")
}
