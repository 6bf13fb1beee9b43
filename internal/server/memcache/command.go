package memcache

import (
	"bytes"
	"strconv"
)

// Command is a parsed command line. The set of variants is closed:
// *GetCommand, *SetCommand, *DeleteCommand and *UnknownCommand.
type Command interface {
	// Name returns the lower-cased verb, or "unknown".
	Name() string

	command()
}

// GetCommand is "get <key>".
type GetCommand struct {
	Key string
}

// SetCommand is "set <key> <metadata> <unused> <length>". The payload
// follows on the connection.
type SetCommand struct {
	Key      string
	Metadata int64
	Length   int64
}

// DeleteCommand is "delete <key>".
type DeleteCommand struct {
	Key string
}

// UnknownCommand is any line that is not a well-formed get, set or
// delete. Verb is the lower-cased first token (empty for a blank line).
type UnknownCommand struct {
	Verb   string
	Reason string
}

func (*GetCommand) Name() string     { return "get" }
func (*SetCommand) Name() string     { return "set" }
func (*DeleteCommand) Name() string  { return "delete" }
func (*UnknownCommand) Name() string { return "unknown" }

func (*GetCommand) command()     {}
func (*SetCommand) command()     {}
func (*DeleteCommand) command()  {}
func (*UnknownCommand) command() {}

// Token counts, verb included.
const (
	getArity    = 2
	setArity    = 5
	deleteArity = 2
)

// ParseCommand classifies one command line. Arity is checked before any
// argument token is read; a set line is only accepted when its numeric
// fields parse and the declared length is within maxItemSize.
func ParseCommand(line []byte, maxItemSize int64) Command {
	tokens := bytes.FieldsFunc(line, isSpace)
	if len(tokens) == 0 {
		return &UnknownCommand{Reason: "empty command"}
	}

	verb := string(bytes.ToLower(tokens[0]))
	switch verb {
	case "get":
		if len(tokens) != getArity {
			return &UnknownCommand{Verb: verb, Reason: "wrong number of arguments"}
		}
		return &GetCommand{Key: string(tokens[1])}

	case "delete":
		if len(tokens) != deleteArity {
			return &UnknownCommand{Verb: verb, Reason: "wrong number of arguments"}
		}
		return &DeleteCommand{Key: string(tokens[1])}

	case "set":
		if len(tokens) != setArity {
			return &UnknownCommand{Verb: verb, Reason: "wrong number of arguments"}
		}
		metadata, err := strconv.ParseInt(string(tokens[2]), 10, 64)
		if err != nil {
			return &UnknownCommand{Verb: verb, Reason: "invalid metadata"}
		}
		length, err := strconv.ParseInt(string(tokens[4]), 10, 64)
		if err != nil || length < 0 {
			return &UnknownCommand{Verb: verb, Reason: "invalid length"}
		}
		if length > maxItemSize {
			return &UnknownCommand{Verb: verb, Reason: "length exceeds max item size"}
		}
		return &SetCommand{
			Key:      string(tokens[1]),
			Metadata: metadata,
			Length:   length,
		}

	default:
		return &UnknownCommand{Verb: verb, Reason: "unknown command"}
	}
}

// isSpace reports ASCII whitespace. Command lines are single-byte text,
// so bytes >= 0x80 are ordinary key characters.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}
