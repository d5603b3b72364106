package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"

	"mookka/searchservice/internal/domain"
)

// testMongoURI defaults to localhost. Set MONGO_TEST_URI to override.
func testMongoURI() string {
	if uri := os.Getenv("MONGO_TEST_URI"); uri != "" {
		return uri
	}
	return "mongodb://localhost:27017"
}

// setupTestCatalog skips the test when MongoDB is unreachable.
func setupTestCatalog(t *testing.T) (*Catalog, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uri := testMongoURI()
	client, err := Connect(ctx, uri, options.Client().SetConnectTimeout(3*time.Second).SetServerSelectionTimeout(3*time.Second))
	if err != nil {
		t.Skipf("MongoDB not available at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("MongoDB ping failed at %s: %v", uri, err)
	}

	dbName := fmt.Sprintf("media_search_test_%d", time.Now().UnixNano())
	catalog := NewCatalog(client, dbName, "media")
	if err := catalog.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		t.Fatalf("EnsureIndexes: %v", err)
	}

	cleanup := func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = client.Database(dbName).Drop(ctx2)
		_ = client.Disconnect(ctx2)
	}
	return catalog, cleanup
}

func TestIntegrationFindAndGet(t *testing.T) {
	catalog, cleanup := setupTestCatalog(t)
	defer cleanup()
	ctx := context.Background()

	seed := []domain.MediaDetail{
		{MediaSummary: domain.MediaSummary{ID: "f1", ExternalID: "438631", Title: "Dune", Type: domain.MediaTypeFilm, Rating: 8, Director: domain.StringPtr("Denis Villeneuve")}},
		{MediaSummary: domain.MediaSummary{ID: "f2", ExternalID: "693134", Title: "Dune: Part Two", Type: domain.MediaTypeFilm, Rating: 8.5}},
		{MediaSummary: domain.MediaSummary{ID: "f3", ExternalID: "27205", Title: "Inception", Type: domain.MediaTypeFilm, Rating: 8.8, Director: domain.StringPtr("Christopher Nolan")}},
		{MediaSummary: domain.MediaSummary{ID: "b1", ExternalID: "B1X", Title: "Dune", Type: domain.MediaTypeBook, Rating: 9, Author: domain.StringPtr("Frank Herbert")}},
	}
	for _, item := range seed {
		if err := catalog.Upsert(ctx, item); err != nil {
			t.Fatalf("Upsert(%s): %v", item.ID, err)
		}
	}

	films, err := catalog.FindByTypeAndText(ctx, domain.MediaTypeFilm, "DUNE", 10)
	if err != nil {
		t.Fatalf("FindByTypeAndText: %v", err)
	}
	if len(films) != 2 || films[0].ID != "f2" || films[1].ID != "f1" {
		t.Fatalf("expected both Dune films by rating, got %+v", films)
	}

	byDirector, err := catalog.FindByTypeAndText(ctx, domain.MediaTypeFilm, "nolan", 10)
	if err != nil {
		t.Fatalf("FindByTypeAndText director: %v", err)
	}
	if len(byDirector) != 1 || byDirector[0].ID != "f3" {
		t.Fatalf("expected director match, got %+v", byDirector)
	}

	detail, err := catalog.Get(ctx, domain.MediaTypeFilm, "438631")
	if err != nil {
		t.Fatalf("Get by external id: %v", err)
	}
	if detail.ID != "f1" || !detail.FromLocalStore {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if _, err := catalog.Get(ctx, domain.MediaTypeBook, "438631"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across types, got %v", err)
	}
}
