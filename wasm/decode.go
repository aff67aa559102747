package wasm

import (
	"github.com/vertexvm/vertexvm/leb128"
	"github.com/vertexvm/vertexvm/reader"
	"github.com/vertexvm/vertexvm/value"
)

// Decode parses a complete binary module image.
func Decode(b []byte) (*Module, error) {
	r := reader.New(b)
	if err := readHeader(r); err != nil {
		return nil, err
	}
	m := &Module{}
	seen := map[SectionID]bool{}
	for !r.AtEnd() {
		idByte, err := r.ReadByte()
		if err != nil {
			return nil, wrapDecodeErr(r.Pos(), "reading section id", err)
		}
		id := SectionID(idByte)
		size, err := leb128.ReadUint32(r)
		if err != nil {
			return nil, wrapDecodeErr(r.Pos(), "reading section size", err)
		}
		sub, err := r.Slice(size)
		if err != nil {
			return nil, wrapDecodeErr(r.Pos(), "reading section payload", err)
		}
		if id != SecCustom {
			// DataCount (12) is ordered before Code (10) and Data (11) in
			// the binary format, so only at-most-once is enforced here,
			// not ascending id order.
			if seen[id] {
				return nil, decodeErr(r.Pos(), ErrSectionOrder.Error())
			}
			seen[id] = true
		}
		if err := readSection(m, id, sub); err != nil {
			return nil, err
		}
		if !sub.AtEnd() {
			return nil, decodeErr(sub.Pos(), ErrSectionSizeMismatch.Error())
		}
	}
	if len(m.Codes) != len(m.FuncTypes) {
		return nil, decodeErr(r.Pos(), ErrCodeFuncMismatch.Error())
	}
	if m.HasDataCount && uint32(len(m.Datas)) != m.DataCount {
		return nil, decodeErr(r.Pos(), ErrDataCountMismatch.Error())
	}
	countImports(m)
	return m, nil
}

func countImports(m *Module) {
	for _, imp := range m.Imports {
		switch imp.Kind {
		case ImportFunc:
			m.NumImportedFuncs++
		case ImportTable:
			m.NumImportedTables++
		case ImportMemory:
			m.NumImportedMems++
		case ImportGlobal:
			m.NumImportedGlobals++
		}
	}
}

func readHeader(r *reader.Reader) error {
	magic, err := r.Read(4)
	if err != nil {
		return wrapDecodeErr(r.Pos(), "reading magic", err)
	}
	if string(magic) != "\x00asm" {
		return decodeErr(0, ErrBadMagic.Error())
	}
	ver, err := r.Read(4)
	if err != nil {
		return wrapDecodeErr(r.Pos(), "reading version", err)
	}
	if ver[0] != 1 || ver[1] != 0 || ver[2] != 0 || ver[3] != 0 {
		return decodeErr(4, ErrBadVersion.Error())
	}
	return nil
}

func readSection(m *Module, id SectionID, r *reader.Reader) error {
	switch id {
	case SecCustom:
		return readCustomSection(m, r)
	case SecType:
		return readTypeSection(m, r)
	case SecImport:
		return readImportSection(m, r)
	case SecFunction:
		return readFunctionSection(m, r)
	case SecTable:
		return readTableSection(m, r)
	case SecMemory:
		return readMemorySection(m, r)
	case SecGlobal:
		return readGlobalSection(m, r)
	case SecExport:
		return readExportSection(m, r)
	case SecStart:
		return readStartSection(m, r)
	case SecElement:
		return readElementSection(m, r)
	case SecCode:
		return readCodeSection(m, r)
	case SecData:
		return readDataSection(m, r)
	case SecDataCount:
		return readDataCountSection(m, r)
	default:
		return decodeErr(r.Pos(), "unknown section id")
	}
}

func readName(r *reader.Reader) (string, error) {
	n, err := leb128.ReadUint32(r)
	if err != nil {
		return "", wrapDecodeErr(r.Pos(), "reading name length", err)
	}
	return r.ReadUTF8(n)
}

func readValueType(r *reader.Reader) (ValueType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, wrapDecodeErr(r.Pos(), "reading value type", err)
	}
	switch b {
	case 0x7F:
		return value.I32, nil
	case 0x7E:
		return value.I64, nil
	case 0x7D:
		return value.F32, nil
	case 0x7C:
		return value.F64, nil
	case 0x7B:
		return value.V128, nil
	case 0x70:
		return value.FuncRef, nil
	case 0x6F:
		return value.ExternRef, nil
	default:
		return 0, decodeErr(r.Pos(), "invalid value type byte")
	}
}

func readRefType(r *reader.Reader) (RefType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case 0x70:
		return RefTypeFunc, nil
	case 0x6F:
		return RefTypeExtern, nil
	default:
		return 0, decodeErr(r.Pos(), "invalid reference type byte")
	}
}

func readLimits(r *reader.Reader) (Limits, error) {
	flag, err := r.ReadByte()
	if err != nil {
		return Limits{}, err
	}
	min, err := leb128.ReadUint32(r)
	if err != nil {
		return Limits{}, err
	}
	if flag == 0 {
		return Limits{Min: min, Max: -1}, nil
	}
	max, err := leb128.ReadUint32(r)
	if err != nil {
		return Limits{}, err
	}
	return Limits{Min: min, Max: int64(max)}, nil
}

func readTableType(r *reader.Reader) (TableType, error) {
	et, err := readRefType(r)
	if err != nil {
		return TableType{}, err
	}
	lim, err := readLimits(r)
	if err != nil {
		return TableType{}, err
	}
	return TableType{ElemType: et, Limits: lim}, nil
}

func readMemType(r *reader.Reader) (MemType, error) {
	lim, err := readLimits(r)
	if err != nil {
		return MemType{}, err
	}
	return MemType{Limits: lim}, nil
}

func readGlobalType(r *reader.Reader) (GlobalType, error) {
	vt, err := readValueType(r)
	if err != nil {
		return GlobalType{}, err
	}
	mb, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, err
	}
	if mb != 0 && mb != 1 {
		return GlobalType{}, decodeErr(r.Pos(), "invalid mutability flag")
	}
	return GlobalType{ValType: vt, Mutable: mb == 1}, nil
}

func readVec32(r *reader.Reader) (uint32, error) {
	return leb128.ReadUint32(r)
}

func readCustomSection(m *Module, r *reader.Reader) error {
	name, err := readName(r)
	if err != nil {
		return err
	}
	payload, err := r.Read(r.Remaining())
	if err != nil {
		return err
	}
	m.Customs = append(m.Customs, CustomSection{Name: name, Payload: payload})
	return nil
}

func readTypeSection(m *Module, r *reader.Reader) error {
	n, err := readVec32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return decodeErr(r.Pos(), "invalid function type form")
		}
		np, err := readVec32(r)
		if err != nil {
			return err
		}
		params := make([]ValueType, np)
		for j := range params {
			if params[j], err = readValueType(r); err != nil {
				return err
			}
		}
		nr, err := readVec32(r)
		if err != nil {
			return err
		}
		results := make([]ValueType, nr)
		for j := range results {
			if results[j], err = readValueType(r); err != nil {
				return err
			}
		}
		m.Types = append(m.Types, FuncType{Params: params, Results: results})
	}
	return nil
}

func readImportSection(m *Module, r *reader.Reader) error {
	n, err := readVec32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		mod, err := readName(r)
		if err != nil {
			return err
		}
		name, err := readName(r)
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		imp := Import{Module: mod, Name: name, Kind: ImportDescKind(kind)}
		switch imp.Kind {
		case ImportFunc:
			imp.TypeIdx, err = readVec32(r)
		case ImportTable:
			imp.TableType, err = readTableType(r)
		case ImportMemory:
			imp.MemType, err = readMemType(r)
		case ImportGlobal:
			imp.GlobalType, err = readGlobalType(r)
		default:
			err = decodeErr(r.Pos(), "invalid import kind")
		}
		if err != nil {
			return err
		}
		m.Imports = append(m.Imports, imp)
	}
	return nil
}

func readFunctionSection(m *Module, r *reader.Reader) error {
	n, err := readVec32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		idx, err := readVec32(r)
		if err != nil {
			return err
		}
		m.FuncTypes = append(m.FuncTypes, idx)
	}
	return nil
}

func readTableSection(m *Module, r *reader.Reader) error {
	n, err := readVec32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		tt, err := readTableType(r)
		if err != nil {
			return err
		}
		m.Tables = append(m.Tables, tt)
	}
	return nil
}

func readMemorySection(m *Module, r *reader.Reader) error {
	n, err := readVec32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		mt, err := readMemType(r)
		if err != nil {
			return err
		}
		m.Mems = append(m.Mems, mt)
	}
	return nil
}

func readGlobalSection(m *Module, r *reader.Reader) error {
	n, err := readVec32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		gt, err := readGlobalType(r)
		if err != nil {
			return err
		}
		expr, err := readExpr(r)
		if err != nil {
			return err
		}
		m.Globals = append(m.Globals, Global{Type: gt, Init: expr})
	}
	return nil
}

func readExportSection(m *Module, r *reader.Reader) error {
	n, err := readVec32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		name, err := readName(r)
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		idx, err := readVec32(r)
		if err != nil {
			return err
		}
		m.Exports = append(m.Exports, Export{Name: name, Kind: ExportDescKind(kind), Idx: idx})
	}
	return nil
}

func readStartSection(m *Module, r *reader.Reader) error {
	idx, err := readVec32(r)
	if err != nil {
		return err
	}
	m.HasStart = true
	m.StartIdx = idx
	return nil
}

func readElementSection(m *Module, r *reader.Reader) error {
	n, err := readVec32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		flag, err := readVec32(r)
		if err != nil {
			return err
		}
		el := Element{RefType: RefTypeFunc}
		switch flag {
		case 0:
			el.Mode = ElemActive
			el.TableIdx = 0
			if el.Offset, err = readExpr(r); err != nil {
				return err
			}
			el.Funcs, err = readFuncIdxVec(r)
		case 1:
			el.Mode = ElemPassive
			var et byte
			if et, err = r.ReadByte(); err != nil {
				return err
			}
			if et != 0x00 {
				return decodeErr(r.Pos(), "invalid elemkind")
			}
			el.Funcs, err = readFuncIdxVec(r)
		case 2:
			el.Mode = ElemActive
			if el.TableIdx, err = readVec32(r); err != nil {
				return err
			}
			if el.Offset, err = readExpr(r); err != nil {
				return err
			}
			var et byte
			if et, err = r.ReadByte(); err != nil {
				return err
			}
			if et != 0x00 {
				return decodeErr(r.Pos(), "invalid elemkind")
			}
			el.Funcs, err = readFuncIdxVec(r)
		case 3:
			el.Mode = ElemDeclarative
			var et byte
			if et, err = r.ReadByte(); err != nil {
				return err
			}
			if et != 0x00 {
				return decodeErr(r.Pos(), "invalid elemkind")
			}
			el.Funcs, err = readFuncIdxVec(r)
		case 4:
			el.Mode = ElemActive
			el.TableIdx = 0
			if el.Offset, err = readExpr(r); err != nil {
				return err
			}
			el.Inits, err = readExprVec(r)
		case 5:
			el.Mode = ElemPassive
			if el.RefType, err = readRefType(r); err != nil {
				return err
			}
			el.Inits, err = readExprVec(r)
		case 6:
			el.Mode = ElemActive
			if el.TableIdx, err = readVec32(r); err != nil {
				return err
			}
			if el.Offset, err = readExpr(r); err != nil {
				return err
			}
			if el.RefType, err = readRefType(r); err != nil {
				return err
			}
			el.Inits, err = readExprVec(r)
		case 7:
			el.Mode = ElemDeclarative
			if el.RefType, err = readRefType(r); err != nil {
				return err
			}
			el.Inits, err = readExprVec(r)
		default:
			return decodeErr(r.Pos(), ErrMalformedElemType.Error())
		}
		if err != nil {
			return err
		}
		m.Elements = append(m.Elements, el)
	}
	return nil
}

func readFuncIdxVec(r *reader.Reader) ([]uint32, error) {
	n, err := readVec32(r)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		if out[i], err = readVec32(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readExprVec(r *reader.Reader) ([]Expr, error) {
	n, err := readVec32(r)
	if err != nil {
		return nil, err
	}
	out := make([]Expr, n)
	for i := range out {
		if out[i], err = readExpr(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readCodeSection(m *Module, r *reader.Reader) error {
	n, err := readVec32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		size, err := readVec32(r)
		if err != nil {
			return err
		}
		sub, err := r.Slice(size)
		if err != nil {
			return err
		}
		code, err := readCode(sub)
		if err != nil {
			return err
		}
		if !sub.AtEnd() {
			return decodeErr(sub.Pos(), ErrSectionSizeMismatch.Error())
		}
		m.Codes = append(m.Codes, code)
	}
	return nil
}

func readCode(r *reader.Reader) (Code, error) {
	nGroups, err := readVec32(r)
	if err != nil {
		return Code{}, err
	}
	locals := make([]LocalEntry, nGroups)
	var total uint64
	for i := range locals {
		cnt, err := readVec32(r)
		if err != nil {
			return Code{}, err
		}
		t, err := readValueType(r)
		if err != nil {
			return Code{}, err
		}
		locals[i] = LocalEntry{Count: cnt, Type: t}
		total += uint64(cnt)
		if total >= 1<<28 {
			return Code{}, decodeErr(r.Pos(), ErrTooManyLocals.Error())
		}
	}
	body, err := readExpr(r)
	if err != nil {
		return Code{}, err
	}
	return Code{Locals: locals, Body: body}, nil
}

func readDataSection(m *Module, r *reader.Reader) error {
	n, err := readVec32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		flag, err := readVec32(r)
		if err != nil {
			return err
		}
		d := Data{}
		switch flag {
		case 0:
			d.Mode = DataActive
			d.MemIdx = 0
			if d.Offset, err = readExpr(r); err != nil {
				return err
			}
		case 1:
			d.Mode = DataPassive
		case 2:
			d.Mode = DataActive
			if d.MemIdx, err = readVec32(r); err != nil {
				return err
			}
			if d.Offset, err = readExpr(r); err != nil {
				return err
			}
		default:
			return decodeErr(r.Pos(), "malformed data segment")
		}
		dn, err := readVec32(r)
		if err != nil {
			return err
		}
		init, err := r.Read(dn)
		if err != nil {
			return err
		}
		d.Init = append([]byte(nil), init...)
		m.Datas = append(m.Datas, d)
	}
	return nil
}

func readDataCountSection(m *Module, r *reader.Reader) error {
	n, err := readVec32(r)
	if err != nil {
		return err
	}
	m.HasDataCount = true
	m.DataCount = n
	return nil
}
