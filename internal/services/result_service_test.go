package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/go-enrich-backend/internal/domain"
	"github.com/tbourn/go-enrich-backend/internal/repo"
)

func acmePayload() domain.JobPayload {
	return domain.JobPayload{
		Domain:  "https://acme.com",
		Results: []domain.PromptAnswer{{Prompt: "name?", Answer: "Acme"}},
	}
}

func TestResultService_ReceiveThenGet_ReturnsExactPayload(t *testing.T) {
	store := repo.NewMemoryStore()
	svc := NewResultService(store, time.Hour)
	ctx := context.Background()

	if err := svc.Receive(ctx, "abc", acmePayload()); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	got, err := svc.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(*got, acmePayload()) {
		t.Fatalf("got %+v; want %+v", *got, acmePayload())
	}
}

func TestResultService_Get_UnknownIsNotFound(t *testing.T) {
	svc := NewResultService(repo.NewMemoryStore(), 0)
	_, err := svc.Get(context.Background(), "never-dispatched")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if errors.Is(err, ErrStorage) {
		t.Fatalf("pending must not look like a storage failure")
	}
}

func TestResultService_Receive_RejectsInvalid_WithoutWriting(t *testing.T) {
	cases := []struct {
		name string
		id   string
		p    domain.JobPayload
	}{
		{"empty results", "abc", domain.JobPayload{Domain: "https://acme.com", Results: []domain.PromptAnswer{}}},
		{"missing domain", "abc", domain.JobPayload{Results: acmePayload().Results}},
		{"empty answer", "abc", domain.JobPayload{Domain: "https://acme.com", Results: []domain.PromptAnswer{{Prompt: "p"}}}},
		{"missing id", "", acmePayload()},
		{"malformed id", "a b/c", acmePayload()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := repo.NewMemoryStore()
			svc := NewResultService(store, time.Hour)
			err := svc.Receive(context.Background(), tc.id, tc.p)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
			if store.Len() != 0 {
				t.Fatalf("store must be untouched, has %d keys", store.Len())
			}
			if tc.id == "abc" {
				if _, err := svc.Get(context.Background(), "abc"); !errors.Is(err, ErrNotFound) {
					t.Fatalf("poll after rejected callback: want ErrNotFound, got %v", err)
				}
			}
		})
	}
}

func TestResultService_LastWriteWins(t *testing.T) {
	svc := NewResultService(repo.NewMemoryStore(), time.Hour)
	ctx := context.Background()

	first := acmePayload()
	second := domain.JobPayload{Domain: "https://acme.com", Results: []domain.PromptAnswer{
		{Prompt: "industry?", Answer: "Anvils"},
		{Prompt: "hq?", Answer: "Desert"},
	}}
	if err := svc.Receive(ctx, "abc", first); err != nil {
		t.Fatal(err)
	}
	if err := svc.Receive(ctx, "abc", second); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(ctx, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(*got, second) {
		t.Fatalf("want whole second payload, got %+v", *got)
	}
}

func TestResultService_ConcurrentCallbacks_StoreExactlyOne(t *testing.T) {
	svc := NewResultService(repo.NewMemoryStore(), time.Hour)
	ctx := context.Background()

	payloads := make([]domain.JobPayload, 16)
	for i := range payloads {
		results := make([]domain.PromptAnswer, i+1)
		for j := range results {
			results[j] = domain.PromptAnswer{Prompt: fmt.Sprintf("p%d", j), Answer: fmt.Sprintf("writer %d", i)}
		}
		payloads[i] = domain.JobPayload{Domain: "https://acme.com", Results: results}
	}

	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func(p domain.JobPayload) {
			defer wg.Done()
			if err := svc.Receive(ctx, "abc", p); err != nil {
				t.Errorf("Receive: %v", err)
			}
		}(p)
	}
	wg.Wait()

	got, err := svc.Get(ctx, "abc")
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range payloads {
		if reflect.DeepEqual(*got, p) {
			return
		}
	}
	t.Fatalf("stored value %+v matches none of the submitted payloads", *got)
}

func TestResultService_Expiry(t *testing.T) {
	store, clk := newClockedStore()
	svc := NewResultService(store, time.Hour)
	ctx := context.Background()

	if err := svc.Receive(ctx, "abc", acmePayload()); err != nil {
		t.Fatal(err)
	}
	clk.Advance(59 * time.Minute)
	if _, err := svc.Get(ctx, "abc"); err != nil {
		t.Fatalf("still within TTL: %v", err)
	}
	// Reading does not extend the lifetime.
	clk.Advance(2 * time.Minute)
	if _, err := svc.Get(ctx, "abc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after TTL: want ErrNotFound, got %v", err)
	}
}

func TestResultService_Get_CorruptIsStorageFailure(t *testing.T) {
	store := repo.NewMemoryStore()
	svc := NewResultService(store, time.Hour)
	ctx := context.Background()

	for name, raw := range map[string]string{
		"not json":      "{{{",
		"empty results": `{"domain":"https://acme.com","results":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_ = store.Set(ctx, repo.ResultKey("abc"), []byte(raw), time.Hour)
			_, err := svc.Get(ctx, "abc")
			if !errors.Is(err, ErrCorruptResult) || !errors.Is(err, ErrStorage) {
				t.Fatalf("want ErrCorruptResult wrapping ErrStorage, got %v", err)
			}
			if errors.Is(err, ErrNotFound) {
				t.Fatalf("corruption must never read as not found")
			}
		})
	}
}

func TestResultService_StorageFailures(t *testing.T) {
	ctx := context.Background()

	svc := NewResultService(&flakyStore{Store: repo.NewMemoryStore(), failSet: true}, time.Hour)
	if err := svc.Receive(ctx, "abc", acmePayload()); !errors.Is(err, ErrStorage) {
		t.Fatalf("Receive: want ErrStorage, got %v", err)
	}

	svc = NewResultService(&flakyStore{Store: repo.NewMemoryStore(), failGet: true}, time.Hour)
	if _, err := svc.Get(ctx, "abc"); !errors.Is(err, ErrStorage) || errors.Is(err, ErrNotFound) {
		t.Fatalf("Get: want ErrStorage, got %v", err)
	}
}
