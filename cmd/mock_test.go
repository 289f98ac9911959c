package cmd

import (
	"context"

	"github.com/reke592/rdbdiff/internal/errors"
	"github.com/reke592/rdbdiff/internal/schema"
)

// memLoader serves a canned document, standing in for a live database.
type memLoader struct {
	dialect string
	doc     *schema.Document
	loadErr error

	loads  int
	closed bool
}

func (l *memLoader) Load(context.Context) (*schema.Document, error) {
	l.loads++

	if l.loadErr != nil {
		return nil, l.loadErr
	}

	return l.doc, nil
}

func (l *memLoader) Dialect() string { return l.dialect }

func (l *memLoader) Close() error {
	l.closed = true
	return nil
}

// exportableLoader adds canned create statements keyed by "kind/name".
type exportableLoader struct {
	memLoader

	statements map[string]string
}

func (l *exportableLoader) CreateStatement(_ context.Context, kind, name string) (string, error) {
	statement, ok := l.statements[kind+"/"+name]
	if !ok {
		return "", errors.Newf(errors.ErrTypeExport, "%s %s not found", kind, name)
	}

	return statement, nil
}
