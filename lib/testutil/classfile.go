// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"encoding/binary"
	"math"
)

// ClassSpec describes a synthetic class file for [ClassFile].
type ClassSpec struct {
	// Name is the internal class name, e.g. "com/example/App".
	Name string

	// Super is the internal name of the superclass. Empty means
	// "java/lang/Object".
	Super string

	// Interfaces lists implemented interface names.
	Interfaces []string

	// Strings are string literals, each stored as a CONSTANT_String
	// referencing its own Utf8 entry.
	Strings []string

	// Methods are method names. Each gets descriptor "()V" and a
	// small Code attribute that calls the superclass constructor.
	Methods []string

	// SourceFile, when non-empty, adds a SourceFile attribute.
	SourceFile string

	// MajorVersion defaults to 61 (Java 17).
	MajorVersion uint16
}

// Constant pool tags, from the class file format.
const (
	constantUtf8               = 1
	constantInteger            = 3
	constantFloat              = 4
	constantLong               = 5
	constantDouble             = 6
	constantClass              = 7
	constantString             = 8
	constantFieldref           = 9
	constantMethodref          = 10
	constantInterfaceMethodref = 11
	constantNameAndType        = 12
	constantMethodHandle       = 15
	constantMethodType         = 16
	constantDynamic            = 17
	constantInvokeDynamic      = 18
	constantModule             = 19
	constantPackage            = 20
)

// constantPool accumulates constant pool entries and deduplicates Utf8
// entries the way javac does.
type constantPool struct {
	entries []byte
	next    uint16
	utf8s   map[string]uint16
}

func newConstantPool() *constantPool {
	return &constantPool{next: 1, utf8s: make(map[string]uint16)}
}

func (p *constantPool) add(slots uint16, payload ...byte) uint16 {
	index := p.next
	p.entries = append(p.entries, payload...)
	p.next += slots
	return index
}

func (p *constantPool) utf8(s string) uint16 {
	if index, ok := p.utf8s[s]; ok {
		return index
	}
	payload := []byte{constantUtf8}
	payload = binary.BigEndian.AppendUint16(payload, uint16(len(s)))
	payload = append(payload, s...)
	index := p.add(1, payload...)
	p.utf8s[s] = index
	return index
}

func (p *constantPool) ref(tag byte, a uint16) uint16 {
	return p.add(1, binary.BigEndian.AppendUint16([]byte{tag}, a)...)
}

func (p *constantPool) pair(tag byte, a, b uint16) uint16 {
	payload := binary.BigEndian.AppendUint16([]byte{tag}, a)
	return p.add(1, binary.BigEndian.AppendUint16(payload, b)...)
}

func (p *constantPool) u32(tag byte, v uint32) uint16 {
	return p.add(1, binary.BigEndian.AppendUint32([]byte{tag}, v)...)
}

func (p *constantPool) u64(tag byte, v uint64) uint16 {
	return p.add(2, binary.BigEndian.AppendUint64([]byte{tag}, v)...)
}

// ClassFile builds a class file from spec. Identical specs produce
// identical bytes.
func ClassFile(spec ClassSpec) []byte {
	super := spec.Super
	if super == "" {
		super = "java/lang/Object"
	}
	major := spec.MajorVersion
	if major == 0 {
		major = 61
	}

	pool := newConstantPool()
	thisClass := pool.ref(constantClass, pool.utf8(spec.Name))
	superClass := pool.ref(constantClass, pool.utf8(super))

	interfaces := make([]uint16, 0, len(spec.Interfaces))
	for _, name := range spec.Interfaces {
		interfaces = append(interfaces, pool.ref(constantClass, pool.utf8(name)))
	}
	for _, literal := range spec.Strings {
		pool.ref(constantString, pool.utf8(literal))
	}

	voidDescriptor := pool.utf8("()V")
	superInit := pool.pair(constantMethodref, superClass,
		pool.pair(constantNameAndType, pool.utf8("<init>"), voidDescriptor))
	codeName := pool.utf8("Code")

	// One constant of every remaining kind, so codecs see the full
	// tag set in every fixture.
	pool.u32(constantInteger, 42)
	pool.u32(constantFloat, math.Float32bits(1.5))
	pool.u64(constantLong, 1<<40)
	pool.u64(constantDouble, math.Float64bits(2.25))
	field := pool.pair(constantFieldref, thisClass,
		pool.pair(constantNameAndType, pool.utf8("value"), pool.utf8("I")))
	runnable := pool.ref(constantClass, pool.utf8("java/lang/Runnable"))
	pool.pair(constantInterfaceMethodref, runnable,
		pool.pair(constantNameAndType, pool.utf8("run"), voidDescriptor))
	pool.add(1, constantMethodHandle, 1, byte(field>>8), byte(field))
	pool.ref(constantMethodType, voidDescriptor)
	bootstrap := pool.pair(constantNameAndType, pool.utf8("bootstrap"), pool.utf8("()Ljava/lang/Object;"))
	pool.pair(constantDynamic, 0, bootstrap)
	pool.pair(constantInvokeDynamic, 0, bootstrap)
	pool.ref(constantModule, pool.utf8("com.example.module"))
	pool.ref(constantPackage, pool.utf8("com/example"))

	methodNames := make([]uint16, 0, len(spec.Methods))
	for _, name := range spec.Methods {
		methodNames = append(methodNames, pool.utf8(name))
	}
	var sourceFileName, sourceFileValue uint16
	if spec.SourceFile != "" {
		sourceFileName = pool.utf8("SourceFile")
		sourceFileValue = pool.utf8(spec.SourceFile)
	}

	out := binary.BigEndian.AppendUint32(nil, 0xCAFEBABE)
	out = binary.BigEndian.AppendUint16(out, 0)
	out = binary.BigEndian.AppendUint16(out, major)
	out = binary.BigEndian.AppendUint16(out, pool.next)
	out = append(out, pool.entries...)

	out = binary.BigEndian.AppendUint16(out, 0x0021) // public super
	out = binary.BigEndian.AppendUint16(out, thisClass)
	out = binary.BigEndian.AppendUint16(out, superClass)
	out = binary.BigEndian.AppendUint16(out, uint16(len(interfaces)))
	for _, index := range interfaces {
		out = binary.BigEndian.AppendUint16(out, index)
	}
	out = binary.BigEndian.AppendUint16(out, 0) // fields

	// aload_0; invokespecial superInit; return
	code := []byte{0x2a, 0xb7, byte(superInit >> 8), byte(superInit), 0xb1}
	out = binary.BigEndian.AppendUint16(out, uint16(len(methodNames)))
	for _, name := range methodNames {
		out = binary.BigEndian.AppendUint16(out, 0x0001)
		out = binary.BigEndian.AppendUint16(out, name)
		out = binary.BigEndian.AppendUint16(out, voidDescriptor)
		out = binary.BigEndian.AppendUint16(out, 1)
		out = binary.BigEndian.AppendUint16(out, codeName)
		// max_stack, max_locals, code_length, code, exception table
		// length, attributes count.
		out = binary.BigEndian.AppendUint32(out, uint32(2+2+4+len(code)+2+2))
		out = binary.BigEndian.AppendUint16(out, 1)
		out = binary.BigEndian.AppendUint16(out, 1)
		out = binary.BigEndian.AppendUint32(out, uint32(len(code)))
		out = append(out, code...)
		out = binary.BigEndian.AppendUint16(out, 0)
		out = binary.BigEndian.AppendUint16(out, 0)
	}

	if spec.SourceFile == "" {
		return binary.BigEndian.AppendUint16(out, 0)
	}
	out = binary.BigEndian.AppendUint16(out, 1)
	out = binary.BigEndian.AppendUint16(out, sourceFileName)
	out = binary.BigEndian.AppendUint32(out, 2)
	return binary.BigEndian.AppendUint16(out, sourceFileValue)
}
