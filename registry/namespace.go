// Copyright (C) 2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package registry

// Namespace groups related bindings so providers can hand the loader a
// tree instead of spelling out every dotted key. Flattening joins the
// names on the path with dots, keeping leaves only.
//
// Namespaces are builders, not live views: they are read once during a
// load. They are not safe for concurrent mutation, and binding a namespace
// inside itself is a caller bug.
type Namespace struct {
	names  []string
	values map[string]any
}

// NewNamespace returns an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{values: make(map[string]any)}
}

// Set binds value under name. Rebinding a name replaces its value but
// keeps its original position in the flatten order.
func (n *Namespace) Set(name string, value any) *Namespace {
	if _, ok := n.values[name]; !ok {
		n.names = append(n.names, name)
	}
	n.values[name] = value
	return n
}

// Child returns the namespace bound at name, creating one on demand. A
// leaf already bound there is replaced.
func (n *Namespace) Child(name string) *Namespace {
	if ns, ok := n.values[name].(*Namespace); ok && ns != nil {
		return ns
	}
	child := NewNamespace()
	n.Set(name, child)
	return child
}

// Walk visits every leaf in binding order with its dot-joined key rooted
// at base. An empty base leaves the keys bare.
func (n *Namespace) Walk(base string, fn func(key string, value any)) {
	for _, name := range n.names {
		key := name
		if base != "" {
			key = base + "." + name
		}
		if child, ok := n.values[name].(*Namespace); ok {
			if child != nil {
				child.Walk(key, fn)
			}
			continue
		}
		fn(key, n.values[name])
	}
}

// AsMap flattens the namespace to dot-joined keys rooted at base.
func (n *Namespace) AsMap(base string) map[string]any {
	out := make(map[string]any)
	n.Walk(base, func(key string, value any) {
		out[key] = value
	})
	return out
}
