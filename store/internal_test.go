package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- locate Tests ---

type valueLocated struct{ Document }

func (valueLocated) Location() Location { return Location{Database: "d", Container: "v"} }

type pointerLocated struct{ Document }

func (*pointerLocated) Location() Location { return Location{Database: "d", Container: "p"} }

type halfLocated struct{ Document }

func (halfLocated) Location() Location { return Location{Database: "d"} }

type registered struct{ Document }

type unlocated struct{ Document }

func TestLocate(t *testing.T) {
	r := NewRegistry()
	Register[registered](r, Location{Database: "d", Container: "r"})
	Register[valueLocated](r, Location{Database: "d", Container: "ignored"})

	tests := []struct {
		name   string
		locate func(*Registry) (Location, bool)
		want   Location
		wantOK bool
	}{
		{"value receiver", locate[valueLocated], Location{"d", "v"}, true},
		{"pointer receiver", locate[pointerLocated], Location{"d", "p"}, true},
		{"missing container", locate[halfLocated], Location{"d", ""}, false},
		{"registry", locate[registered], Location{"d", "r"}, true},
		{"undeclared", locate[unlocated], Location{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.locate(r)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocate_NilRegistry(t *testing.T) {
	if _, ok := locate[registered](nil); ok {
		t.Error("expected no location without a registry")
	}
	if _, ok := locate[valueLocated](nil); !ok {
		t.Error("expected a Locator to work without a registry")
	}
}

func TestTypeName(t *testing.T) {
	if got := typeName[valueLocated](); got != "valueLocated" {
		t.Errorf("unexpected type name %q", got)
	}
}

// --- SelectsAll Tests ---

func TestQuery_SelectsAll(t *testing.T) {
	tests := []struct {
		q    *Query
		want bool
	}{
		{SelectAll("Customer"), true},
		{NewQuery("select * from c"), true},
		{NewQuery("  SELECT *  FROM Customer c ;"), true},
		{NewQuery(`SELECT * FROM "my-table"`), true},
		{NewQuery("SELECT * FROM c WHERE c.name = @name"), false},
		{NewQuery("SELECT c.name FROM c"), false},
		{NewQuery("SELECT * FROM c", Parameter{Name: "@x", Value: 1}), false},
		{nil, false},
	}

	for _, tt := range tests {
		text := "<nil>"
		if tt.q != nil {
			text = tt.q.Text
		}
		if got := tt.q.SelectsAll(); got != tt.want {
			t.Errorf("SelectsAll(%q) = %v, want %v", text, got, tt.want)
		}
	}
}

func TestSelectAll_Text(t *testing.T) {
	if got := SelectAll("Customer").Text; got != "SELECT * FROM Customer" {
		t.Errorf("unexpected text %q", got)
	}
}

// --- wait Tests ---

func TestWait_Elapses(t *testing.T) {
	start := time.Now()
	if err := wait(context.Background(), 30*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("expected wait to block for the full duration")
	}
}

func TestWait_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWait_ZeroDuration(t *testing.T) {
	if err := wait(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- drain Tests ---

type pages struct {
	data [][][]byte
	err  error
	i    int
}

func (p *pages) More() bool { return p.i < len(p.data) || (p.err != nil && p.i == len(p.data)) }

func (p *pages) NextPage(context.Context) ([][]byte, error) {
	if p.i == len(p.data) {
		p.i++
		return nil, p.err
	}
	page := p.data[p.i]
	p.i++
	return page, nil
}

type named struct {
	Name string `json:"name"`
}

func TestDrain(t *testing.T) {
	p := &pages{data: [][][]byte{
		{[]byte(`{"name":"a"}`), []byte(`{"name":"b"}`)},
		{},
		{[]byte(`{"name":"c"}`)},
	}}

	got, err := drain[named](context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[2].Name != "c" {
		t.Errorf("unexpected items %+v", got)
	}
}

func TestDrain_Empty(t *testing.T) {
	got, err := drain[named](context.Background(), &pages{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestDrain_PageError(t *testing.T) {
	boom := errors.New("boom")
	p := &pages{data: [][][]byte{{[]byte(`{"name":"a"}`)}}, err: boom}

	got, err := drain[named](context.Background(), p)
	if !errors.Is(err, boom) {
		t.Fatalf("expected page error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no items on error, got %+v", got)
	}
}

func TestDrain_DecodeError(t *testing.T) {
	p := &pages{data: [][][]byte{{[]byte(`not json`)}}}

	if _, err := drain[named](context.Background(), p); err == nil {
		t.Fatal("expected decode error")
	}
}

// --- Metrics Tests ---

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.observe("query", statusOK)
	m.retry()
	m.setBindings(3)
}
