package shop

import (
	"encoding/json"
	"log"
	"net/http"
)

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("PUT /admin/api/2024-07/products/{id}", updateProduct)
	mux.HandleFunc("POST /admin/api/2024-07/price_rules.json", createPriceRule)
	mux.HandleFunc("GET /admin/api/2024-07/orders.json", listOrders)
	mux.HandleFunc("POST /admin/api/2024-07/inventory_levels/set.json", setInventory)
}

func updateProduct(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	log.Println("MOCK SHOP update product:", r.PathValue("id"), body)
	json.NewEncoder(w).Encode(map[string]any{
		"product": map[string]any{
			"id":    r.PathValue("id"),
			"title": body["title"],
			"price": body["price"],
		},
	})
}

func createPriceRule(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	json.NewEncoder(w).Encode(map[string]any{
		"price_rule": map[string]any{
			"id":         907,
			"title":      body["title"],
			"value":      body["value"],
			"value_type": body["value_type"],
		},
	})
}

func listOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	json.NewEncoder(w).Encode(map[string]any{
		"orders": []map[string]any{
			{"id": 5001, "status": status, "total_price": "49.90", "currency": "EUR"},
			{"id": 5002, "status": status, "total_price": "120.00", "currency": "EUR"},
		},
	})
}

func setInventory(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	json.NewEncoder(w).Encode(map[string]any{
		"inventory_level": map[string]any{
			"inventory_item_id": body["inventory_item_id"],
			"available":         body["available"],
		},
	})
}
