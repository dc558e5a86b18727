// Copyright 2025 The fuzzer-go Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fuzz

import (
	"bytes"
	"strconv"
)

// CommandElem is one element of a device command. Type-confusion mutation
// can replace a numeric element with a junk string, so both shapes are
// representable; IsJunk selects which one is live.
type CommandElem struct {
	Num    byte
	Junk   string
	IsJunk bool
}

// CommandPayload is an ordered byte-range command sequence, the payload
// shape of session targets. On the wire it is a JSON array whose elements
// are numbers, or strings where junk was injected.
type CommandPayload struct {
	elems []CommandElem
}

// NewCommandPayload builds a command from numeric bytes.
func NewCommandPayload(nums ...byte) *CommandPayload {
	p := &CommandPayload{elems: make([]CommandElem, len(nums))}
	for i, n := range nums {
		p.elems[i] = CommandElem{Num: n}
	}
	return p
}

// Len returns the number of elements.
func (p *CommandPayload) Len() int { return len(p.elems) }

// Elem returns the element at index i.
func (p *CommandPayload) Elem(i int) CommandElem { return p.elems[i] }

// SetNum replaces the element at index i with a numeric value.
func (p *CommandPayload) SetNum(i int, n byte) {
	p.elems[i] = CommandElem{Num: n}
}

// SetJunk replaces the element at index i with a junk string.
func (p *CommandPayload) SetJunk(i int, s string) {
	p.elems[i] = CommandElem{Junk: s, IsJunk: true}
}

// Remove deletes the element at index i.
func (p *CommandPayload) Remove(i int) {
	p.elems = append(p.elems[:i], p.elems[i+1:]...)
}

// Nums returns the numeric values of all non-junk elements, in order.
func (p *CommandPayload) Nums() []byte {
	out := make([]byte, 0, len(p.elems))
	for _, e := range p.elems {
		if !e.IsJunk {
			out = append(out, e.Num)
		}
	}
	return out
}

// Clone implements Payload.
func (p *CommandPayload) Clone() Payload {
	out := &CommandPayload{elems: make([]CommandElem, len(p.elems))}
	copy(out.elems, p.elems)
	return out
}

// WireBytes serializes the command as a JSON array.
func (p *CommandPayload) WireBytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range p.elems {
		if i > 0 {
			buf.WriteByte(',')
		}
		if e.IsJunk {
			writeJSONString(&buf, e.Junk)
		} else {
			buf.WriteString(strconv.Itoa(int(e.Num)))
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Fingerprint implements Payload.
func (p *CommandPayload) Fingerprint() string {
	wire, _ := p.WireBytes()
	return string(wire)
}
