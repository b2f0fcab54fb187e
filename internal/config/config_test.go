package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("CUSTOM_ITEMS_ALLOWED", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg := Load()
	if cfg.StoreBackend != "memory" {
		t.Errorf("StoreBackend = %q, want memory", cfg.StoreBackend)
	}
	if !cfg.CustomItemsAllowed {
		t.Error("CustomItemsAllowed should default to true")
	}
	if cfg.IncrementOnReselect {
		t.Error("IncrementOnReselect should default to false")
	}
	if cfg.DefaultDeliveryCharge != "30" {
		t.Errorf("DefaultDeliveryCharge = %q, want 30", cfg.DefaultDeliveryCharge)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.ObjectStore.Enabled() {
		t.Error("object store should be disabled without endpoint and bucket")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("INCREMENT_ON_RESELECT", "true")
	t.Setenv("CUSTOM_ITEMS_ALLOWED", "nonsense")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("OBJECT_STORE_ENDPOINT", "minio:9000")
	t.Setenv("OBJECT_STORE_BUCKET", "bills")

	cfg := Load()
	if cfg.StoreBackend != "postgres" {
		t.Errorf("StoreBackend = %q", cfg.StoreBackend)
	}
	if !cfg.IncrementOnReselect {
		t.Error("IncrementOnReselect not parsed")
	}
	if !cfg.CustomItemsAllowed {
		t.Error("unparseable bool should fall back to default")
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != want[0] || cfg.CORSAllowedOrigins[1] != want[1] {
		t.Errorf("CORSAllowedOrigins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
	if !cfg.ObjectStore.Enabled() {
		t.Error("object store should be enabled")
	}
}
