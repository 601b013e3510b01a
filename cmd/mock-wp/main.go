package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/ccastromar/sos-store-ops-system/internal/mocks/wp"
)

func main() {
	addr := flag.String("addr", ":9001", "listen address")
	flag.Parse()

	mux := http.NewServeMux()
	wp.RegisterHandlers(mux)

	log.Println("[MOCK WP] escuchando en", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}
