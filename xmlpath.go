// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package aecg

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// step selects the index-th child element with the given tag.
type step struct {
	tag   string
	index int
}

// schemaPath is a fixed route through the aECG element tree, relative to
// some starting element. Lookups return ok=false instead of nil elements so
// every caller has to decide what an absent element means.
type schemaPath []step

func path(tags ...string) schemaPath {
	p := make(schemaPath, len(tags))
	for i, t := range tags {
		p[i] = step{tag: t}
	}
	return p
}

// child extends the path with the first child named tag.
func (p schemaPath) child(tags ...string) schemaPath {
	return p.join(path(tags...))
}

// nth extends the path with the index-th (zero based) child named tag.
func (p schemaPath) nth(tag string, index int) schemaPath {
	return p.join(schemaPath{{tag: tag, index: index}})
}

func (p schemaPath) join(q schemaPath) schemaPath {
	out := make(schemaPath, 0, len(p)+len(q))
	out = append(out, p...)
	return append(out, q...)
}

func (p schemaPath) String() string {
	var b strings.Builder
	for i, s := range p {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(s.tag)
		if s.index > 0 {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.index))
			b.WriteByte(']')
		}
	}
	return b.String()
}

// find walks the path from e.
func (p schemaPath) find(e *etree.Element) (*etree.Element, bool) {
	for _, s := range p {
		if e == nil {
			return nil, false
		}
		e = nthChild(e, s.tag, s.index)
	}
	return e, e != nil
}

// attr returns the attribute key of the element at the end of the path.
func (p schemaPath) attr(e *etree.Element, key string) (string, bool) {
	el, ok := p.find(e)
	if !ok {
		return "", false
	}
	a := el.SelectAttr(key)
	if a == nil {
		return "", false
	}
	return a.Value, true
}

// text returns the character data of the element at the end of the path.
func (p schemaPath) text(e *etree.Element) (string, bool) {
	el, ok := p.find(e)
	if !ok {
		return "", false
	}
	return el.Text(), true
}

func nthChild(e *etree.Element, tag string, index int) *etree.Element {
	n := 0
	for _, c := range e.ChildElements() {
		if c.Tag != tag {
			continue
		}
		if n == index {
			return c
		}
		n++
	}
	return nil
}
