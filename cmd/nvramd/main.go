package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fingon/go-nvramd/nlog"
	"github.com/fingon/go-nvramd/nvram"
	"github.com/fingon/go-nvramd/persistence/factory"
	"github.com/fingon/go-nvramd/persistence/seal"
	"github.com/fingon/go-nvramd/transport"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n\n%s -dir STORAGEDIR\n", os.Args[0])
		flag.PrintDefaults()
	}
	backendName := flag.String("backend", "bolt",
		fmt.Sprintf("Persistence backend to use (possible: %v)", factory.List()))
	dir := flag.String("dir", "", "Storage directory (ignored by the inmemory backend)")
	address := flag.String("address", "127.0.0.1:3300", "Address to listen on")
	password := flag.String("password", "", "If set, seal blobs at rest with this password")
	salt := flag.String("salt", "salt", "Salt used together with -password")

	flag.Parse()

	gateway, err := factory.New(*backendName, *dir)
	if err != nil {
		log.Fatal(err)
	}
	if *password != "" {
		gateway, err = seal.Wrap(gateway, seal.Config{Password: *password, Salt: *salt})
		if err != nil {
			log.Fatal(err)
		}
	}

	eng := nvram.NewEngine(gateway)

	ln, err := net.Listen("tcp", *address)
	if err != nil {
		log.Fatal(err)
	}
	nlog.Printf2("cmd/nvramd", "listening on %v, backend %v", *address, *backendName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		ln.Close()
		if err := gateway.Close(); err != nil {
			nlog.Printf2("cmd/nvramd", "gateway.Close: %v", err)
		}
	}()

	if err := transport.Serve(ln, eng); err != nil {
		nlog.Printf2("cmd/nvramd", "serve stopped: %v", err)
	}

	wg.Wait()
}
