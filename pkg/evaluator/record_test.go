package evaluator

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRecordJSONOmitsValueWhenUnbound(t *testing.T) {
	b, err := json.Marshal(Record{Kind: RecordUnbound, Name: "x", Hint: "did you mean 'y'?"})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"kind":"unbound","name":"x","hint":"did you mean 'y'?"}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

func TestRecordJSONKeepsZeroValue(t *testing.T) {
	b, err := json.Marshal(Record{Kind: RecordValue, Name: "z", Value: 0, Depth: 1})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"kind":"value","name":"z","value":0,"depth":1}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

func TestRecordYAML(t *testing.T) {
	b, err := yaml.Marshal(Record{Kind: RecordAssigned, Name: "a", Value: -3, Depth: 2})
	if err != nil {
		t.Fatal(err)
	}
	want := "kind: assigned\nname: a\nvalue: -3\ndepth: 2\n"
	if string(b) != want {
		t.Errorf("got %q, want %q", b, want)
	}
}

func TestRecordJSONRoundTrip(t *testing.T) {
	in := []Record{
		{Kind: RecordAssigned, Name: "a", Value: 7, Depth: 1},
		{Kind: RecordUnbound, Name: "b", Hint: "did you mean 'a'?"},
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out []Record
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestRecordJSONNoScopeKeepsValue(t *testing.T) {
	b, err := json.Marshal(Record{Kind: RecordNoScope, Name: "a", Value: 1})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"kind":"noscope","name":"a","value":1}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}
