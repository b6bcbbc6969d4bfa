// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.
package surrealair_test

import (
	"context"
	"maps"
	"sync"

	"github.com/canonical/surrealair"
)

// This file contains a fake transport which records the queries it is asked
// to run and answers with canned responses.

type runCall struct {
	query  string
	params map[string]any
}

type fakeRunner struct {
	mutex   sync.Mutex
	calls   []runCall
	respond func(query string, params map[string]any) (surrealair.Response, error)
}

// replyWith returns a runner answering every query with the JSON response
// body.
func replyWith(body string) *fakeRunner {
	return &fakeRunner{
		respond: func(string, map[string]any) (surrealair.Response, error) {
			return surrealair.ParseResponse([]byte(body))
		},
	}
}

func (r *fakeRunner) Run(ctx context.Context, query string, params map[string]any) (surrealair.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mutex.Lock()
	r.calls = append(r.calls, runCall{query: query, params: maps.Clone(params)})
	r.mutex.Unlock()
	if r.respond == nil {
		return surrealair.Response{}, nil
	}
	return r.respond(query, params)
}

func (r *fakeRunner) runs() []runCall {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]runCall(nil), r.calls...)
}
