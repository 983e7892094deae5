/*
 * errors.go, part of scoper.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package scoper

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every *Error carries one of them, so callers can test
// with errors.Is(err, scoper.ErrScoreParse) and so on.
var (
	ErrWorkspace      = errors.New("workspace setup failed")
	ErrToolInvocation = errors.New("external tool failed")
	ErrToolTimeout    = errors.New("external tool timed out")
	ErrScoreParse     = errors.New("no score in tool output")
	ErrEnsembleSolver = errors.New("ensemble solver failed")
	ErrRefinement     = errors.New("refinement failed")
	ErrConfig         = errors.New("invalid configuration")
)

// Error is the error type returned by all scoper stages.
// The Decorate method allows to add and retrieve the
// list of functions the error went through, without wrapping it again.
type Error struct {
	Kind     error  //one of the Err* values above
	Stage    string //the stage or handle that produced the error
	File     string //the file that has problems, or empty string if none.
	Message  string
	Err      error //underlying cause, can be nil
	deco     []string
	critical bool
}

// NewError returns a new *Error. deco is the initial decoration, normally
// the function that creates the error.
func NewError(kind error, stage, file, message string, cause error, critical bool, deco ...string) *Error {
	return &Error{
		Kind:     kind,
		Stage:    stage,
		File:     file,
		Message:  message,
		Err:      cause,
		deco:     deco,
		critical: critical,
	}
}

func (E *Error) Error() string {
	var b strings.Builder
	b.WriteString(E.Stage)
	b.WriteString(": ")
	if E.Kind != nil {
		b.WriteString(E.Kind.Error())
	} else {
		b.WriteString("error")
	}
	if E.File != "" {
		fmt.Fprintf(&b, " (%s)", E.File)
	}
	if E.Message != "" {
		b.WriteString(": " + E.Message)
	}
	if E.Err != nil {
		b.WriteString(": " + E.Err.Error())
	}
	return b.String()
}

// Unwrap allows errors.Is to match both the kind and the cause.
func (E *Error) Unwrap() []error {
	ret := make([]error, 0, 2)
	if E.Kind != nil {
		ret = append(ret, E.Kind)
	}
	if E.Err != nil {
		ret = append(ret, E.Err)
	}
	return ret
}

// Decorate adds deco to the trail of the error, unless deco is empty,
// and returns the current trail.
func (E *Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

// Critical returns true if the error should stop the whole run.
func (E *Error) Critical() bool { return E.critical }

// FileName returns the file involved in the error, if any.
func (E *Error) FileName() string { return E.File }

// Decorate adds caller to err's trail if err is an *Error (at any depth),
// and returns err unchanged otherwise.
func Decorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		e.Decorate(caller)
	}
	return err
}

// IsCritical returns true if err contains a critical *Error.
func IsCritical(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Critical()
	}
	return false
}
