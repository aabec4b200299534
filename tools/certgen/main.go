// Package main generates a local Certificate Authority and a server
// certificate signed by it, for serving RecipeKeeper over HTTPS:
//
//	go run ./tools/certgen -dir certs -hosts localhost,127.0.0.1
//	server -tls-cert certs/server.crt -tls-key certs/server.key
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/atinyakov/RecipeKeeper/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	flag.Parse()

	if err := run(*dir, splitHosts(*hosts), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "certgen: %v\n", err)
		os.Exit(1)
	}
}

// run writes dir/server.{crt,key}, signed by dir/ca.{crt,key}. The CA is
// created on first use and reused afterwards so clients keep trusting it.
func run(dir string, hosts []string, out io.Writer) error {
	ca, err := certgen.LoadBundle(dir, "ca")
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if ca, err = certgen.GenerateCA("RecipeKeeper Dev CA"); err != nil {
			return err
		}
		if err := certgen.WriteBundle(dir, "ca", ca); err != nil {
			return err
		}
		fmt.Fprintf(out, "created CA in %s\n", dir)
	case err != nil:
		return err
	}

	caCert, caKey, err := certgen.ParseCA(ca)
	if err != nil {
		return err
	}
	srv, err := certgen.GenerateServerCertificate(hosts, caCert, caKey)
	if err != nil {
		return err
	}
	if err := certgen.WriteBundle(dir, "server", srv); err != nil {
		return err
	}
	fmt.Fprintf(out, "server certificate for %s written to %s\n", strings.Join(hosts, ", "), dir)
	return nil
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
