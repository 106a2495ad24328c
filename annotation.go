// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package wfdb

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
)

// Code is an annotation code classifying an event at a point in a record.
type Code int

// Annotation codes defined by the WFDB standard.
const (
	NotQRS   Code = 0  // Not-QRS, also the unknown/invalid sentinel
	Normal   Code = 1  // Normal beat
	LBBB     Code = 2  // Left bundle branch block beat
	RBBB     Code = 3  // Right bundle branch block beat
	Aberr    Code = 4  // Aberrated atrial premature beat
	PVC      Code = 5  // Premature ventricular contraction
	Fusion   Code = 6  // Fusion of ventricular and normal beat
	NPC      Code = 7  // Nodal (junctional) premature beat
	APC      Code = 8  // Atrial premature beat
	SVPB     Code = 9  // Supraventricular premature or ectopic beat
	VEsc     Code = 10 // Ventricular escape beat
	NEsc     Code = 11 // Nodal (junctional) escape beat
	Pace     Code = 12 // Paced beat
	Unknown  Code = 13 // Unclassifiable beat
	Noise    Code = 14 // Signal quality change
	Arfct    Code = 16 // Isolated QRS-like artifact
	STCh     Code = 18 // ST change
	TCh      Code = 19 // T-wave change
	Systole  Code = 20 // Systole
	Diastole Code = 21 // Diastole
	Note     Code = 22 // Comment annotation
	Measure  Code = 23 // Measurement annotation
	PWave    Code = 24 // P-wave peak
	BBB      Code = 25 // Left or right bundle branch block
	PaceSP   Code = 26 // Non-conducted pacer spike
	TWave    Code = 27 // T-wave peak
	Rhythm   Code = 28 // Rhythm change
	UWave    Code = 29 // U-wave peak
	Learn    Code = 30 // Learning
	FlWav    Code = 31 // Ventricular flutter wave
	VFOn     Code = 32 // Start of ventricular flutter/fibrillation
	VFOff    Code = 33 // End of ventricular flutter/fibrillation
	AEsc     Code = 34 // Atrial escape beat
	SVEsc    Code = 35 // Supraventricular escape beat
	Link     Code = 36 // Link to external data
	NAPC     Code = 37 // Non-conducted P-wave
	PFus     Code = 38 // Fusion of paced and normal beat
	WFOn     Code = 39 // Waveform onset
	WFOff    Code = 40 // Waveform end
	ROnT     Code = 41 // R-on-T premature ventricular contraction

	// ACMax is the largest code in the built-in table.
	ACMax Code = 49
	// MaxCode is the largest code that may be registered.
	MaxCode Code = 255
)

var builtinMnemonics = [ACMax + 1]string{
	" ", "N", "L", "R", "a", // 0 - 4
	"V", "F", "J", "A", "S", // 5 - 9
	"E", "j", "/", "Q", "~", // 10 - 14
	"[15]", "|", "[17]", "s", "T", // 15 - 19
	"*", "D", "\"", "=", "p", // 20 - 24
	"B", "^", "t", "+", "u", // 25 - 29
	"?", "!", "[", "]", "e", // 30 - 34
	"n", "@", "x", "f", "(", // 35 - 39
	")", "r", "[42]", "[43]", "[44]", // 40 - 44
	"[45]", "[46]", "[47]", "[48]", "[49]", // 45 - 49
}

var builtinDescriptions = [ACMax + 1]string{
	NotQRS:   "",
	Normal:   "Normal beat",
	LBBB:     "Left bundle branch block beat",
	RBBB:     "Right bundle branch block beat",
	Aberr:    "Aberrated atrial premature beat",
	PVC:      "Premature ventricular contraction",
	Fusion:   "Fusion of ventricular and normal beat",
	NPC:      "Nodal (junctional) premature beat",
	APC:      "Atrial premature beat",
	SVPB:     "Supraventricular premature or ectopic beat",
	VEsc:     "Ventricular escape beat",
	NEsc:     "Nodal (junctional) escape beat",
	Pace:     "Paced beat",
	Unknown:  "Unclassifiable beat",
	Noise:    "Change in signal quality",
	Arfct:    "Isolated QRS-like artifact",
	STCh:     "ST segment change",
	TCh:      "T-wave change",
	Systole:  "Systole",
	Diastole: "Diastole",
	Note:     "Comment annotation",
	Measure:  "Measurement annotation",
	PWave:    "P-wave peak",
	BBB:      "Left or right bundle branch block",
	PaceSP:   "Non-conducted pacer spike",
	TWave:    "T-wave peak",
	Rhythm:   "Rhythm change",
	UWave:    "U-wave peak",
	Learn:    "Learning",
	FlWav:    "Ventricular flutter wave",
	VFOn:     "Start of ventricular flutter/fibrillation",
	VFOff:    "End of ventricular flutter/fibrillation",
	AEsc:     "Atrial escape beat",
	SVEsc:    "Supraventricular escape beat",
	Link:     "Link to external data (aux contains URL)",
	NAPC:     "Non-conducted P-wave (blocked APB)",
	PFus:     "Fusion of paced and normal beat",
	WFOn:     "Waveform onset",
	WFOff:    "Waveform end",
	ROnT:     "R-on-T premature ventricular contraction",
}

var qrsCodes = map[Code]bool{
	Normal: true, LBBB: true, RBBB: true, Aberr: true, PVC: true,
	Fusion: true, NPC: true, APC: true, SVPB: true, VEsc: true,
	NEsc: true, Pace: true, Unknown: true, BBB: true, Learn: true,
	AEsc: true, SVEsc: true, PFus: true, ROnT: true,
}

type annotation struct {
	mnemonic    string
	description string
}

// AnnotationTable maps annotation codes to mnemonics and descriptions and
// back. It is safe for concurrent use.
type AnnotationTable struct {
	mu         sync.RWMutex
	byCode     map[Code]annotation
	byMnemonic map[string]Code
}

// NewAnnotationTable returns a table holding the built-in WFDB codes.
func NewAnnotationTable() *AnnotationTable {
	t := &AnnotationTable{byCode: make(map[Code]annotation, ACMax)}
	for c := Code(1); c <= ACMax; c++ {
		t.byCode[c] = annotation{mnemonic: builtinMnemonics[c], description: builtinDescriptions[c]}
	}
	t.reindex()
	return t
}

// Annotations is the process-wide default table used by the package level
// helpers.
var Annotations = NewAnnotationTable()

// CodeToString returns the mnemonic and/or the description of code. Fields
// that were not requested are left empty.
func (t *AnnotationTable) CodeToString(code Code, wantMnemonic, wantDescription bool) (mnemonic, description string, err error) {
	if !wantMnemonic && !wantDescription {
		return "", "", fmt.Errorf("%w: neither mnemonic nor description requested", ErrInvalidArgument)
	}

	t.mu.RLock()
	a, ok := t.byCode[code]
	t.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("%w: %d", ErrInvalidCode, code)
	}

	if wantMnemonic {
		mnemonic = a.mnemonic
	}
	if wantDescription {
		description = a.description
	}
	return mnemonic, description, nil
}

// Mnemonic returns the mnemonic of code.
func (t *AnnotationTable) Mnemonic(code Code) (string, error) {
	m, _, err := t.CodeToString(code, true, false)
	return m, err
}

// Description returns the description of code, which may be empty for
// reserved codes.
func (t *AnnotationTable) Description(code Code) (string, error) {
	_, d, err := t.CodeToString(code, false, true)
	return d, err
}

// MnemonicToCode returns the code whose mnemonic matches exactly, or NotQRS
// when there is none.
func (t *AnnotationTable) MnemonicToCode(mnemonic string) Code {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.byMnemonic[mnemonic]
}

// Register adds or replaces the entry for code. The mnemonic must not belong
// to another code.
func (t *AnnotationTable) Register(code Code, mnemonic, description string) error {
	if code <= NotQRS || code > MaxCode {
		return fmt.Errorf("%w: %d is not registrable", ErrInvalidCode, code)
	}
	if mnemonic == "" || strings.IndexFunc(mnemonic, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: mnemonic %q", ErrInvalidArgument, mnemonic)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if owner, ok := t.byMnemonic[mnemonic]; ok && owner != code {
		return fmt.Errorf("%w: mnemonic %q already belongs to code %d", ErrInvalidArgument, mnemonic, owner)
	}

	t.byCode[code] = annotation{mnemonic: mnemonic, description: description}
	t.reindex()
	return nil
}

// IsQRS reports whether code denotes a beat annotation.
func (t *AnnotationTable) IsQRS(code Code) bool {
	return qrsCodes[code]
}

// reindex rebuilds the mnemonic index. Callers hold the write lock.
func (t *AnnotationTable) reindex() {
	idx := make(map[string]Code, len(t.byCode))
	for c, a := range t.byCode {
		idx[a.mnemonic] = c
	}
	t.byMnemonic = idx
}

// CodeToString looks up code in the default table.
func CodeToString(code Code, wantMnemonic, wantDescription bool) (string, string, error) {
	return Annotations.CodeToString(code, wantMnemonic, wantDescription)
}

// MnemonicToCode looks up mnemonic in the default table.
func MnemonicToCode(mnemonic string) Code {
	return Annotations.MnemonicToCode(mnemonic)
}

// RegisterAnnotation registers a custom code in the default table.
func RegisterAnnotation(code Code, mnemonic, description string) error {
	return Annotations.Register(code, mnemonic, description)
}

// String returns the mnemonic of c, or its number in brackets when unknown.
func (c Code) String() string {
	if m, err := Annotations.Mnemonic(c); err == nil {
		return m
	}
	return fmt.Sprintf("[%d]", int(c))
}
