package bptree

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"

	"bufftree/txnctx"
)

// RunBatchFile replays a textual batch-operations file against the tree:
// each line is "i <key>" to insert or "d <key>" to remove, one instruction
// per line. parse turns the textual key into K; newValue produces the
// value to insert for a given key. Grounded directly on
// original_source/b_plus_tree.cpp's BatchOpsFromFile, which this project
// used purely as a test harness — bufftree exposes the same shape so its
// own tests can replay the identical fixtures.
//
// runID identifies this run in the log line below for correlation against
// other concurrent batch runs; it is never interpreted by the tree itself.
// Pass txnctx.None for an untracked run.
func (t *Tree[K, V]) RunBatchFile(r io.Reader, runID txnctx.Token, parse func(string) (K, error), newValue func(K) V) error {
	log.Printf("bptree: batch run %s starting", runID)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return fmt.Errorf("bptree: batch file line %d: expected \"i|d <key>\", got %q", lineNo, line)
		}
		key, err := parse(fields[1])
		if err != nil {
			return fmt.Errorf("bptree: batch file line %d: %w", lineNo, err)
		}
		switch fields[0] {
		case "i":
			if err := t.Insert(key, newValue(key)); err != nil && err != ErrDuplicateKey {
				return fmt.Errorf("bptree: batch file line %d: %w", lineNo, err)
			}
		case "d":
			if err := t.Remove(key); err != nil && err != ErrKeyNotFound {
				return fmt.Errorf("bptree: batch file line %d: %w", lineNo, err)
			}
		default:
			return fmt.Errorf("bptree: batch file line %d: unknown instruction %q", lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	log.Printf("bptree: batch run %s replayed %d lines", runID, lineNo)
	return nil
}
