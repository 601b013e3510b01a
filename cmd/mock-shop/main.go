package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/ccastromar/sos-store-ops-system/internal/mocks/shop"
)

func main() {
	addr := flag.String("addr", ":9002", "listen address")
	flag.Parse()

	mux := http.NewServeMux()
	shop.RegisterHandlers(mux)

	log.Println("[MOCK SHOP] escuchando en", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}
