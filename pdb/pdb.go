/*
 * pdb.go, part of scoper.
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

// Package pdb reads the few things scoper needs from PDB files: the atoms
// of the first model and their coordinates. It can also remove atoms
// from a file, which is needed before sampling with KGSrna.
package pdb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// symbolMass assigns masses to elements.
// Note that just common "bio-elements" are present
var symbolMass = map[string]float64{
	"H":  1.008,
	"C":  12.01,
	"O":  16.00,
	"N":  14.01,
	"P":  30.97,
	"S":  32.06,
	"Se": 78.96,
	"K":  39.1,
	"Ca": 40.08,
	"Mg": 24.30,
	"Cl": 35.45,
	"Na": 22.99,
	"Zn": 65.38,
	"Mn": 54.94,
}

// KGSUnsupportedAtoms are hydrogen names that reduce adds to RNA but
// KGSrna does not accept.
var KGSUnsupportedAtoms = []string{"HO'5", "H21", "H22", "H41", "H42", "H61", "H62", "HO'1",
	"HO'2", "H5'1", "H5'2", "H3T", "H5T"}

// Atom contains the information of one ATOM or HETATM record, except
// for the coordinates.
type Atom struct {
	ID      int
	Name    string
	ResName string
	Chain   byte
	ResID   int
	Het     bool
	Symbol  string
	Mass    float64
}

// Structure is the first model of a PDB file.
type Structure struct {
	Atoms  []*Atom
	Coords [][3]float64
}

// Len returns the number of atoms in the structure.
func (S *Structure) Len() int {
	return len(S.Atoms)
}

// symbolFromName tries to guess a chemical element symbol from a PDB
// atom name. It only deals with common bio-elements.
func symbolFromName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty atom name")
	}
	switch {
	case name[0] == 'H' || len(name) == 4:
		return "H", nil
	case name == "CL":
		return "Cl", nil
	case name == "NA":
		return "Na", nil
	case name == "MG":
		return "Mg", nil
	case name == "ZN":
		return "Zn", nil
	case name == "SE":
		return "Se", nil
	case name[0] == 'C', name[0] == 'N', name[0] == 'O', name[0] == 'P', name[0] == 'S':
		return name[:1], nil
	}
	return "", fmt.Errorf("can't guess symbol from atom name %s", name)
}

func isAtomRecord(line string) bool {
	return strings.HasPrefix(line, "ATOM") || strings.HasPrefix(line, "HETATM")
}

// atomName returns the atom name field of an ATOM/HETATM line.
func atomName(line string) string {
	if len(line) < 16 {
		return ""
	}
	return strings.TrimSpace(line[12:16])
}

// parseAtomLine reads an ATOM or HETATM line.
func parseAtomLine(line string) (*Atom, [3]float64, error) {
	var coords [3]float64
	if len(line) < 54 {
		return nil, coords, fmt.Errorf("line too short (%d characters)", len(line))
	}
	err := make([]error, 5)
	atom := new(Atom)
	atom.Het = strings.HasPrefix(line, "HETATM")
	atom.ID, err[0] = strconv.Atoi(strings.TrimSpace(line[6:11]))
	atom.Name = atomName(line)
	atom.ResName = strings.TrimSpace(line[17:20])
	atom.Chain = line[21]
	atom.ResID, err[1] = strconv.Atoi(strings.TrimSpace(line[22:26]))
	coords[0], err[2] = strconv.ParseFloat(strings.TrimSpace(line[30:38]), 64)
	coords[1], err[3] = strconv.ParseFloat(strings.TrimSpace(line[38:46]), 64)
	coords[2], err[4] = strconv.ParseFloat(strings.TrimSpace(line[46:54]), 64)
	for _, e := range err {
		if e != nil {
			return nil, coords, e
		}
	}
	//The element column is optional. If it is not there, we guess.
	if len(line) >= 78 {
		atom.Symbol = strings.TrimSpace(line[76:78])
		if len(atom.Symbol) == 2 {
			atom.Symbol = atom.Symbol[:1] + strings.ToLower(atom.Symbol[1:])
		}
	}
	if atom.Symbol == "" {
		atom.Symbol, _ = symbolFromName(atom.Name)
	}
	atom.Mass = symbolMass[atom.Symbol]
	return atom, coords, nil
}

// Read reads the first model in the PDB file pdbname.
func Read(pdbname string) (*Structure, error) {
	f, err := os.Open(pdbname)
	if err != nil {
		return nil, fmt.Errorf("pdb/Read: %w", err)
	}
	defer f.Close()
	S, err := ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("pdb/Read %s: %w", pdbname, err)
	}
	return S, nil
}

// ReadFrom reads the first model of a PDB from r.
func ReadFrom(r io.Reader) (*Structure, error) {
	S := &Structure{Atoms: make([]*Atom, 0, 100), Coords: make([][3]float64, 0, 100)}
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if strings.HasPrefix(line, "END") && len(S.Atoms) > 0 {
			break
		}
		if !isAtomRecord(line) {
			continue
		}
		atom, c, err := parseAtomLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		S.Atoms = append(S.Atoms, atom)
		S.Coords = append(S.Coords, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return S, nil
}

// StripAtoms removes from the PDB file pdbname every ATOM/HETATM record
// whose atom name is in names. The file is replaced atomically. It
// returns the number of records removed.
func StripAtoms(pdbname string, names []string) (int, error) {
	const errid = "pdb/StripAtoms"
	if len(names) == 0 {
		return 0, nil
	}
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[strings.TrimSpace(n)] = true
	}
	in, err := os.Open(pdbname)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", errid, err)
	}
	defer in.Close()
	tmp, err := os.CreateTemp(filepath.Dir(pdbname), ".strip-*.pdb")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", errid, err)
	}
	defer os.Remove(tmp.Name()) //fails harmlessly after the rename
	w := bufio.NewWriter(tmp)
	removed := 0
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if isAtomRecord(line) && drop[atomName(line)] {
			removed++
			continue
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			tmp.Close()
			return 0, fmt.Errorf("%s: %w", errid, err)
		}
	}
	if err := scanner.Err(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("%s: %w", errid, err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("%s: %w", errid, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("%s: %w", errid, err)
	}
	if st, err := os.Stat(pdbname); err == nil {
		_ = os.Chmod(tmp.Name(), st.Mode().Perm())
	}
	if err := os.Rename(tmp.Name(), pdbname); err != nil {
		return 0, fmt.Errorf("%s: %w", errid, err)
	}
	return removed, nil
}
