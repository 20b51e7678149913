package metadata

import (
	"context"
	"testing"
)

type fakeProvider struct {
	name ProviderName
}

func (f *fakeProvider) Name() ProviderName { return f.name }
func (f *fakeProvider) RequiresAuth() bool { return false }
func (f *fakeProvider) SearchArtist(_ context.Context, _ SearchQuery) ([]ArtistResult, error) {
	return nil, nil
}
func (f *fakeProvider) SearchRelease(_ context.Context, _ SearchQuery) ([]ReleaseResult, error) {
	return nil, nil
}

func TestRegistryInOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeProvider{name: NameDiscogs})
	r.Register(&fakeProvider{name: NameMusicBrainz})
	r.Register(&fakeProvider{name: NameLastFM})

	got := r.InOrder([]ProviderName{NameLastFM, NameSpotify, NameMusicBrainz})
	if len(got) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(got))
	}
	if got[0].Name() != NameLastFM || got[1].Name() != NameMusicBrainz {
		t.Errorf("order not preserved: %s, %s", got[0].Name(), got[1].Name())
	}
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeProvider{name: NameITunes})
	if r.Get(NameITunes) == nil {
		t.Error("expected registered provider")
	}
	if r.Get(NameSpotify) != nil {
		t.Error("expected nil for unregistered provider")
	}
}

func TestQueryParsing(t *testing.T) {
	q := NewQuery(`"Diana Ross"`, 0)
	if !q.Exact || q.Name != "Diana Ross" {
		t.Errorf("expected exact Diana Ross, got %+v", q)
	}
	if q.Limit != 10 {
		t.Errorf("expected default limit 10, got %d", q.Limit)
	}

	q = NewQuery("OK Computer", 5).WithArtist("Radiohead")
	if q.Exact || q.ArtistName != "Radiohead" || q.Limit != 5 {
		t.Errorf("unexpected query: %+v", q)
	}
}
