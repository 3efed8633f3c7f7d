package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Travis-Britz/cfddns"
	"github.com/cloudflare/cloudflare-go"
	"golang.org/x/term"
)

// resolveToken fills cfg.Token from the key file when the environment did not provide one.
// A missing key file starts the interactive setup, but only when stdin is a terminal.
func resolveToken(cfg *Config, logger *log.Logger) error {
	if cfg.Token != "" {
		return nil
	}

	_, err := os.Stat(cfg.KeyFile)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Printf("key file \"%s\" does not exist", cfg.KeyFile)
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return fmt.Errorf("no API token: set CLOUDFLARE_API_TOKEN or create %s", cfg.KeyFile)
		}
		if err := runSetup(cfg, logger, func() ([]byte, error) { return term.ReadPassword(fd) }); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	}
	if err := verifyPermissions(cfg.KeyFile); err != nil {
		return err
	}

	key, err := readKey(cfg.KeyFile)
	if err != nil {
		return fmt.Errorf("error reading key: %w", err)
	}
	cfg.Token = key
	return nil
}

func runSetup(cfg *Config, logger *log.Logger, readPassword func() ([]byte, error)) error {
	logger.Println("running setup")
	fmt.Fprintf(os.Stderr, "Enter Cloudflare API Token: \n")
	bytekey, err := readPassword()
	if err != nil {
		return fmt.Errorf("runSetup: error reading from stdin: %w", err)
	}
	key := strings.TrimSpace(string(bytekey))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Println("verifying token...")
	if err := cfddns.VerifyToken(ctx, key, cloudflare.BaseURL(cfg.APIRoot)); err != nil {
		return err
	}
	logger.Println("token verified successfully")

	return writeKey(cfg.KeyFile, key, logger)
}

func writeKey(path, key string, logger *log.Logger) error {
	logger.Printf("creating key file at \"%s\"", path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("unable to create \"%s\": %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, key); err != nil {
		return fmt.Errorf("unable to write \"%s\": %w", path, err)
	}
	logger.Printf("token written to \"%s\"", path)
	return nil
}

func readKey(path string) (key string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error reading key: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	keyb, _, err := r.ReadLine()
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("error reading line: %w", err)
	}
	if len(keyb) == 0 {
		return "", fmt.Errorf("key file \"%s\" is empty", path)
	}
	return string(keyb), nil
}

func verifyPermissions(path string) error {

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking keyfile permissions: %w", err)
	}

	perms := info.Mode().Perm()
	// Error messages will state that we want 0600,
	// but we'll also accept 0400 which is even more restricted.
	// The file might be provided by some secrets managing software as readonly.
	if perms != 0600 && perms != 0400 {
		return fmt.Errorf("invalid permissions for \"%s\": expected file permissions \"-rw-------\"; found \"%s\"", path, fs.FileMode(perms))
	}

	return nil
}
