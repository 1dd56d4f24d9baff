// Command quickstart demonstrates opening a bptreekv file, writing a few
// keys, ranging over them, and compacting, mirroring the teacher's
// example/quick_start.go shape for this package's API.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/nyan233/bptreekv"
)

func main() {
	path := "quickstart.db"
	defer os.Remove(path)

	tree, err := bptreekv.Open(path,
		bptreekv.WithFanout(32),
		bptreekv.WithLogger(slog.Default()),
	)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer tree.Close()

	for i := 0; i < 10; i++ {
		key := []byte(fmt.Sprintf("key-%02d", i))
		value := []byte(fmt.Sprintf("value-%02d", i))
		if err := tree.Set(key, value); err != nil {
			log.Fatalf("set: %v", err)
		}
	}

	value, err := tree.Get([]byte("key-05"))
	if err != nil {
		log.Fatalf("get: %v", err)
	}
	fmt.Printf("key-05 = %s\n", value)

	if err := tree.Remove([]byte("key-03")); err != nil {
		log.Fatalf("remove: %v", err)
	}

	cur, err := tree.Range([]byte("key-02"), []byte("key-07"))
	if err != nil {
		log.Fatalf("range: %v", err)
	}
	for {
		k, v, ok, err := cur.Next()
		if err != nil {
			log.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		fmt.Printf("%s -> %s\n", k, v)
	}

	if err := tree.Compact(); err != nil {
		log.Fatalf("compact: %v", err)
	}

	fmt.Printf("stats: %+v\n", tree.Stats())
}
