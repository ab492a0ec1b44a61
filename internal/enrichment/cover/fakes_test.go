package cover

import (
	"context"
)

type call struct {
	title  string
	author string
}

// fakeProvider answers from a table keyed by title and author.
type fakeProvider struct {
	name    string
	answers map[call]string
	errs    map[call]error
	calls   []call
}

func newFakeProvider(name string) *fakeProvider {
	return &fakeProvider{name: name, answers: map[call]string{}, errs: map[call]error{}}
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(_ context.Context, title, author string) (Lookup, error) {
	c := call{title, author}
	f.calls = append(f.calls, c)
	if err, ok := f.errs[c]; ok {
		return Lookup{Requests: 1}, err
	}
	return Lookup{URL: f.answers[c], Requests: 1}, nil
}
