package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Синтаксис разметки
	SynInfo               Code = 2000
	SynUnknownDirective   Code = 2001
	SynUnclosedString     Code = 2002
	SynExpectString       Code = 2003
	SynBadArgument        Code = 2004
	SynHeadingTooDeep     Code = 2005
	SynUnexpectedArgument Code = 2006
	SynEmptyHeading       Code = 2007
	SynUnknownSetting     Code = 2008

	// Ресурсы: файлы, шрифты, изображения, время
	ResInfo             Code = 3000
	ResFileNotFound     Code = 3001
	ResIncludeCycle     Code = 3002
	ResIncludeTooDeep   Code = 3003
	ResFontNotFound     Code = 3004
	ResFontUnavailable  Code = 3005
	ResMissingGlyph     Code = 3006
	ResImageUnsupported Code = 3007
	ResImageDecode      Code = 3008
	ResDateUnavailable  Code = 3009
)

var codeDescription = map[Code]string{
	UnknownCode:           "Unknown error",
	SynInfo:               "Syntax information",
	SynUnknownDirective:   "Unknown directive",
	SynUnclosedString:     "Unclosed string",
	SynExpectString:       "Expected a quoted string",
	SynBadArgument:        "Invalid directive argument",
	SynHeadingTooDeep:     "Heading level too deep",
	SynUnexpectedArgument: "Unexpected directive argument",
	SynEmptyHeading:       "Empty heading",
	SynUnknownSetting:     "Unknown setting",
	ResInfo:               "Resource information",
	ResFileNotFound:       "File not found",
	ResIncludeCycle:       "Include cycle",
	ResIncludeTooDeep:     "Includes nested too deeply",
	ResFontNotFound:       "Font family not found",
	ResFontUnavailable:    "Font could not be loaded",
	ResMissingGlyph:       "No font covers character",
	ResImageUnsupported:   "Unsupported image format",
	ResImageDecode:        "Image could not be decoded",
	ResDateUnavailable:    "Current date unavailable",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("RES%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
