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

// Setting is a named handle on a registry value. The value resolves at
// each call, so a Setting declared at package scope always reflects the
// latest load.
type Setting struct {
	Name         string
	Default      any
	AllowDefault bool
}

// NewSetting returns a handle that falls back to def when the name has no
// stored value.
func NewSetting(name string, def any) Setting {
	return Setting{Name: name, Default: def, AllowDefault: true}
}

// NewRequiredSetting returns a handle whose Value fails when the name has
// no stored value.
func NewRequiredSetting(name string) Setting {
	return Setting{Name: name}
}

// ValueFrom resolves the setting against reg.
func (s Setting) ValueFrom(reg *Registry) (any, error) {
	if s.AllowDefault {
		return reg.Get(s.Name, s.Default), nil
	}
	return reg.Lookup(s.Name)
}

// Value resolves the setting against the default registry.
func (s Setting) Value() (any, error) {
	return s.ValueFrom(Default())
}

// MustValue is Value for settings the process cannot run without.
func (s Setting) MustValue() any {
	value, err := s.Value()
	if err != nil {
		panic(err)
	}
	return value
}
