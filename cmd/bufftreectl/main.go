// bufftreectl is a small command-line harness over a single int64-keyed
// bufftree index backed by a real file, in the same spirit as the
// teacher's cmd/inspect_idx and cmd/seed: a thin driver over the library,
// not a server.
//
// Usage:
//
//	bufftreectl -file db.idx get <key>
//	bufftreectl -file db.idx insert <key>
//	bufftreectl -file db.idx remove <key>
//	bufftreectl -file db.idx batch <commands.txt>
//	bufftreectl -file db.idx dump
//	bufftreectl -file db.idx stats
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"bufftree/bptree"
	"bufftree/bptree/keycodec"
	"bufftree/bufferpool"
	"bufftree/diskio"
	"bufftree/storagepage"
	"bufftree/txnctx"
)

const (
	poolSize        = 64
	replacerK       = 2
	leafMaxSize     = 32
	internalMaxSize = 32
)

func main() {
	filePath := flag.String("file", "bufftree.idx", "backing index file")
	headerArg := flag.Int64("header", -1, "header page id of an existing tree (-1 creates a new tree)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: bufftreectl -file db.idx <get|insert|remove|batch|dump|stats> [arg]")
		os.Exit(1)
	}

	disk, err := diskio.NewFileManager(*filePath)
	if err != nil {
		log.Fatalf("open %s: %v", *filePath, err)
	}
	defer disk.Close()

	pool := bufferpool.New(poolSize, replacerK, disk)

	var idx *bptree.Tree[int64, keycodec.RID]
	if *headerArg < 0 {
		idx, err = bptree.New(pool, keycodec.Int64{}, keycodec.RIDCodec{}, leafMaxSize, internalMaxSize)
		if err != nil {
			log.Fatalf("create tree: %v", err)
		}
		fmt.Printf("created new tree, header page id = %d\n", idx.HeaderPageID())
	} else {
		idx = bptree.Open[int64, keycodec.RID](pool, storagepage.ID(*headerArg), keycodec.Int64{}, keycodec.RIDCodec{}, leafMaxSize, internalMaxSize)
	}

	switch args[0] {
	case "get":
		key := parseKeyArg(args)
		v, ok := idx.GetValue(key)
		if !ok {
			fmt.Println("not found")
			os.Exit(1)
		}
		fmt.Printf("%d -> page=%d slot=%d\n", key, v.PageID, v.Slot)

	case "insert":
		key := parseKeyArg(args)
		if err := idx.Insert(key, keycodec.RID{PageID: key, Slot: 0}); err != nil {
			log.Fatalf("insert: %v", err)
		}

	case "remove":
		key := parseKeyArg(args)
		if err := idx.Remove(key); err != nil {
			log.Fatalf("remove: %v", err)
		}

	case "batch":
		if len(args) < 2 {
			log.Fatal("batch requires a file path")
		}
		f, err := os.Open(args[1])
		if err != nil {
			log.Fatalf("open batch file: %v", err)
		}
		defer f.Close()
		err = idx.RunBatchFile(f, txnctx.New(),
			func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
			func(k int64) keycodec.RID { return keycodec.RID{PageID: k, Slot: 0} },
		)
		if err != nil {
			log.Fatalf("batch: %v", err)
		}

	case "dump":
		if err := idx.PrintBPlusTree(os.Stdout); err != nil {
			log.Fatalf("dump: %v", err)
		}

	case "stats":
		fmt.Println(pool.Stats())

	default:
		log.Fatalf("unknown command %q", args[0])
	}

	pool.FlushAllPages()
	if err := disk.Sync(); err != nil {
		log.Fatalf("sync: %v", err)
	}
}

func parseKeyArg(args []string) int64 {
	if len(args) < 2 {
		log.Fatalf("%s requires a key argument", args[0])
	}
	key, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		log.Fatalf("invalid key %q: %v", args[1], err)
	}
	return key
}
