package docstore

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Op is a shell collection method.
type Op string

const (
	OpFind            Op = "find"
	OpFindOne         Op = "findOne"
	OpCountDocuments  Op = "countDocuments"
	OpListCollections Op = "getCollectionNames"
)

// Command is a parsed shell statement such as
// db.orders.find({ "status": "paid" }).limit(5).
type Command struct {
	Collection string
	Op         Op
	Filter     bson.D
	// Limit is 0 when absent.
	Limit   int64
	Explain bool
}

var (
	listRe       = regexp.MustCompile(`^db\.getCollectionNames\(\s*\)$`)
	collectionRe = regexp.MustCompile(`^db\.(\w+)\.(\w+)\(`)
	limitCallRe  = regexp.MustCompile(`\.limit\(\s*(\d+)\s*\)`)
	bareKeyRe    = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][\w.$]*)\s*:`)
)

// ErrNotCommand is returned for text that is not a db.<collection>.<op>(...) call.
var ErrNotCommand = errors.New("not a collection command")

// Parse reads one shell statement.
func Parse(query string) (Command, error) {
	q := strings.TrimSuffix(strings.TrimSpace(query), ";")
	if listRe.MatchString(q) {
		return Command{Op: OpListCollections}, nil
	}

	var cmd Command
	if i := strings.Index(q, ".explain("); i >= 0 {
		cmd.Explain = true
		q = q[:i]
	}
	if m := limitCallRe.FindStringSubmatch(q); m != nil {
		cmd.Limit, _ = strconv.ParseInt(m[1], 10, 64)
		q = limitCallRe.ReplaceAllString(q, "")
	}

	m := collectionRe.FindStringSubmatchIndex(q)
	if m == nil {
		return Command{}, ErrNotCommand
	}
	cmd.Collection = q[m[2]:m[3]]
	cmd.Op = Op(q[m[4]:m[5]])

	args, err := callArgs(q[m[1]-1:])
	if err != nil {
		return Command{}, err
	}
	if cmd.Filter, err = parseFilter(args); err != nil {
		return Command{}, fmt.Errorf("filter: %w", err)
	}
	return cmd, nil
}

// callArgs returns the text between the opening parenthesis at s[0] and
// its matching close, skipping parentheses inside string literals.
func callArgs(s string) (string, error) {
	depth := 0
	var quote rune
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote && (i == 0 || s[i-1] != '\\') {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth == 0 {
				return s[1:i], nil
			}
		}
	}
	return "", errors.New("unbalanced parentheses")
}

// parseFilter reads the first argument as extended JSON. Only the first
// argument is used; a projection after it is ignored.
func parseFilter(args string) (bson.D, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return bson.D{}, nil
	}
	if end := objectEnd(args); end > 0 {
		args = args[:end]
	}
	args = strings.ReplaceAll(args, "'", `"`)

	filter := bson.D{}
	if err := bson.UnmarshalExtJSON([]byte(args), false, &filter); err == nil {
		return filter, nil
	}
	// The shell accepts unquoted keys; extended JSON does not.
	filter = bson.D{}
	quoted := bareKeyRe.ReplaceAllString(args, `$1"$2":`)
	if err := bson.UnmarshalExtJSON([]byte(quoted), false, &filter); err != nil {
		return nil, err
	}
	return filter, nil
}

// objectEnd returns the index just past the object starting at s[0].
func objectEnd(s string) int {
	if !strings.HasPrefix(s, "{") {
		return -1
	}
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote && s[i-1] != '\\' {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
