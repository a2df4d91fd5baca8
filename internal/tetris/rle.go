package tetris

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedRLE = errors.New("malformed board encoding")

// EncodeRLE compresses a board row by row: "5x0,3x2,2x0|10x0|...".
func EncodeRLE(board *Board) string {
	rows := make([]string, 0, Height)

	for _, row := range board {
		runs := make([]string, 0, Width)
		last, count := row[0], 1

		for _, v := range row[1:] {
			if v == last {
				count++
				continue
			}

			runs = append(runs, fmt.Sprintf("%dx%d", count, last))
			last, count = v, 1
		}

		runs = append(runs, fmt.Sprintf("%dx%d", count, last))
		rows = append(rows, strings.Join(runs, ","))
	}

	return strings.Join(rows, "|")
}

// DecodeRLE is the inverse of EncodeRLE.
func DecodeRLE(encoded string) (*Board, error) {
	var board Board

	rows := strings.Split(encoded, "|")
	if len(rows) != Height {
		return nil, fmt.Errorf("%w: %d rows", ErrMalformedRLE, len(rows))
	}

	for y, row := range rows {
		x := 0

		for _, run := range strings.Split(row, ",") {
			countStr, valueStr, ok := strings.Cut(run, "x")
			if !ok {
				return nil, fmt.Errorf("%w: run %q", ErrMalformedRLE, run)
			}

			count, err := strconv.Atoi(countStr)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrMalformedRLE, err)
			}

			value, err := strconv.Atoi(valueStr)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrMalformedRLE, err)
			}

			if count <= 0 || x+count > Width {
				return nil, fmt.Errorf("%w: row %d overflows", ErrMalformedRLE, y)
			}

			for i := 0; i < count; i++ {
				board[y][x] = value
				x++
			}
		}

		if x != Width {
			return nil, fmt.Errorf("%w: row %d has %d cells", ErrMalformedRLE, y, x)
		}
	}

	return &board, nil
}
