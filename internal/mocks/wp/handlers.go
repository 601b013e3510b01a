package wp

import (
	"encoding/json"
	"log"
	"net/http"
)

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /wp-json/sos/v1/cache/clear", clearCache)
	mux.HandleFunc("POST /wp-json/sos/v1/settings", updateSetting)
	mux.HandleFunc("POST /wp-json/wp/v2/plugins", installPlugin)
	mux.HandleFunc("POST /wp-json/wp/v2/plugins/{plugin}", setPluginStatus)
	mux.HandleFunc("DELETE /wp-json/wp/v2/plugins/{plugin}", deletePlugin)
	mux.HandleFunc("POST /wp-json/wp/v2/posts", createPost)
}

func clearCache(w http.ResponseWriter, r *http.Request) {
	log.Println("MOCK WP:", r.Method, r.URL.String())
	json.NewEncoder(w).Encode(map[string]any{
		"cleared": true,
		"objects": 1342,
	})
}

func installPlugin(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	log.Println("MOCK WP install plugin:", body)
	json.NewEncoder(w).Encode(map[string]any{
		"plugin": body["slug"],
		"status": "inactive",
	})
}

func setPluginStatus(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	json.NewEncoder(w).Encode(map[string]any{
		"plugin": r.PathValue("plugin"),
		"status": body["status"],
	})
}

func deletePlugin(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]any{
		"plugin":  r.PathValue("plugin"),
		"deleted": true,
	})
}

func createPost(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	json.NewEncoder(w).Encode(map[string]any{
		"id":     101,
		"title":  body["title"],
		"status": "draft",
		"link":   "http://localhost/?p=101",
	})
}

func updateSetting(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	log.Println("MOCK WP setting:", body)
	json.NewEncoder(w).Encode(map[string]any{
		"option":  body["option"],
		"value":   body["value"],
		"updated": true,
	})
}
