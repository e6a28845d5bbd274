package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/alloc"
	"github.com/joshuapare/memkit/region"
)

// example is one walkthrough of the examples command.
type example struct {
	name  string
	title string
	run   func() error
}

var examples = []example{
	{"bump", "BUMP ALLOCATOR EXAMPLE", exampleBump},
	{"pool", "POOL ALLOCATOR EXAMPLE", examplePool},
	{"stack", "STACK ALLOCATOR EXAMPLE", exampleStack},
	{"freelist", "FREE LIST ALLOCATOR EXAMPLE", exampleFreeList},
	{"combined", "COMBINED ALLOCATORS EXAMPLE", exampleCombined},
}

func init() {
	rootCmd.AddCommand(newExamplesCmd())
}

func newExamplesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examples [bump|pool|stack|freelist|combined]...",
		Short: "Walk each allocator through its typical use case",
		Long: `The examples command runs short scenarios for each allocator:
per-frame scratch memory (bump), game entities (pool), recursive scopes
(stack), variable-size records (free list), and all of them together.

Example:
  memctl examples
  memctl examples pool stack`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExamples(args)
		},
	}
	return cmd
}

func runExamples(names []string) error {
	for _, name := range names {
		if !slices.ContainsFunc(examples, func(e example) bool { return e.name == name }) {
			return fmt.Errorf("unknown example %q", name)
		}
	}
	for _, ex := range examples {
		if len(names) > 0 && !slices.Contains(names, ex.name) {
			continue
		}
		printInfo("\n=== %s ===\n", ex.title)
		if err := ex.run(); err != nil {
			return fmt.Errorf("%s example: %w", ex.name, err)
		}
	}
	printInfo("\n\n=== ALL EXAMPLES COMPLETE ===\n")
	return nil
}

// newRegion wraps a fresh heap buffer of size bytes.
func newRegion(size int) (*region.Region, error) {
	return region.New(make([]byte, size))
}

// putF32 stores v little-endian at p[off:].
func putF32(p []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(p[off:], math.Float32bits(v))
}

func getF32(p []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(p[off:]))
}

// particleSize is x, y, z and radius as float32.
const particleSize = 16

func exampleBump() error {
	printInfo("Use case: Per-frame temporary allocations\n\n")

	r, err := newRegion(4096)
	if err != nil {
		return err
	}
	frame, err := alloc.NewBump(r, nil)
	if err != nil {
		return err
	}

	for f := range 3 {
		printInfo("Frame %d:\n", f)

		count := 10 + f*5
		_, particles, err := frame.Alloc(particleSize * count)
		if err != nil {
			return err
		}
		printInfo("  Allocated %d particles (%d bytes)\n", count, len(particles))
		for i := range count {
			p := particles[i*particleSize:]
			putF32(p, 0, float32(i))
			putF32(p, 4, float32(i*2))
			putF32(p, 8, 0)
			putF32(p, 12, 1)
		}

		_, msg, err := frame.Alloc(256)
		if err != nil {
			return err
		}
		n := copy(msg, fmt.Sprintf("Frame %d: %d particles active", f, count))
		printInfo("  Debug: %s\n", msg[:n])

		printInfo("  Memory used: %d / %d bytes\n", frame.Used(), frame.Cap())
		frame.Reset()
		printInfo("  Reset! Memory used: %d bytes\n\n", frame.Used())
	}
	return nil
}

// Enemy layout: id int32, x float32, y float32, health int32, active int32.
const enemySize = 20

func examplePool() error {
	printInfo("Use case: Fixed-size game entities (spawn/despawn)\n\n")

	const maxEnemies = 5
	r, err := newRegion(24 * maxEnemies)
	if err != nil {
		return err
	}
	pool, err := alloc.NewPool(r, enemySize, maxEnemies, nil)
	if err != nil {
		return err
	}
	printInfo("Pool created: %d enemies max, %d available\n\n", pool.BlockCount(), pool.Available())

	var enemies [3]alloc.Ref
	for i := range enemies {
		ref, e, err := pool.Alloc()
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(e[0:], uint32(i))
		putF32(e, 4, float32(i*100))
		putF32(e, 8, 50)
		binary.LittleEndian.PutUint32(e[12:], 100)
		binary.LittleEndian.PutUint32(e[16:], 1)
		enemies[i] = ref
		printInfo("Spawned enemy %d at (%.0f, %.0f)\n",
			binary.LittleEndian.Uint32(e[0:]), getF32(e, 4), getF32(e, 8))
	}
	printInfo("Pool: %d used, %d available\n\n", pool.Used(), pool.Available())

	printInfo("Enemy 1 killed!\n")
	if err := pool.Free(enemies[1]); err != nil {
		return err
	}
	enemies[1] = alloc.Ref{}
	printInfo("Pool: %d used, %d available\n\n", pool.Used(), pool.Available())

	for i := range 4 {
		_, e, err := pool.Alloc()
		if errors.Is(err, alloc.ErrExhausted) {
			printInfo("Failed to spawn enemy (pool full)\n")
			continue
		}
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(e[0:], uint32(10+i))
		binary.LittleEndian.PutUint32(e[12:], 100)
		printInfo("Spawned enemy %d\n", 10+i)
	}
	printInfo("Pool: %d used, %d available\n", pool.Used(), pool.Available())
	return nil
}

// processLevel allocates a working buffer per recursion level and unwinds it
// on the way out.
func processLevel(s *alloc.Stack, depth, maxDepth int) error {
	if depth > maxDepth {
		return nil
	}
	m := s.Marker()
	_, buf, err := s.Alloc(64)
	if err != nil {
		return err
	}
	n := copy(buf, fmt.Sprintf("Level %d working data", depth))
	printInfo("%*sEnter level %d: %q (stack used: %d)\n", depth*2, "", depth, buf[:n], s.Used())

	if err := processLevel(s, depth+1, maxDepth); err != nil {
		return err
	}

	printInfo("%*sExit level %d (stack used: %d)\n", depth*2, "", depth, s.Used())
	return s.FreeToMarker(m)
}

func exampleStack() error {
	printInfo("Use case: Recursive algorithms with scoped allocations\n\n")

	r, err := newRegion(1024)
	if err != nil {
		return err
	}
	s, err := alloc.NewStack(r, nil)
	if err != nil {
		return err
	}

	printInfo("Processing with recursion depth 4:\n\n")
	if err := processLevel(s, 0, 4); err != nil {
		return err
	}
	printInfo("\nAfter recursion, stack used: %d (all freed!)\n", s.Used())
	return nil
}

func exampleFreeList() error {
	printInfo("Use case: Variable-size allocations with individual frees\n\n")

	r, err := newRegion(1024)
	if err != nil {
		return err
	}
	heap, err := alloc.NewFreeList(r, nil)
	if err != nil {
		return err
	}
	printInfo("Heap initialized: %d bytes\n\n", heap.Cap())

	var refs []alloc.Ref
	for _, n := range []int{100, 200, 50} {
		ref, _, err := heap.Alloc(n)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
		printInfo("Allocated %d bytes at offset %d (used: %d)\n", n, ref.Off, heap.Used())
	}

	printInfo("\nFreeing 200-byte block...\n")
	if err := heap.Free(refs[1]); err != nil {
		return err
	}
	printInfo("After free (used: %d)\n", heap.Used())

	ref, _, err := heap.Alloc(150)
	if err != nil {
		return err
	}
	printInfo("\nAllocated 150 bytes at offset %d (reused freed space!)\n", ref.Off)
	printInfo("Used: %d bytes\n", heap.Used())
	printVerbose("Free blocks: %v\n", heap.FreeBlocks())

	for _, ref := range []alloc.Ref{refs[0], refs[2], ref} {
		if err := heap.Free(ref); err != nil {
			return err
		}
	}
	printInfo("\nAfter freeing all (used: %d)\n", heap.Used())
	return heap.Check()
}

// Item layout: name [32]byte, type int32.
const itemSize = 36

func putItem(p []byte, name string, typ uint32) {
	clear(p[:32])
	copy(p[:31], name)
	binary.LittleEndian.PutUint32(p[32:], typ)
}

func itemName(p []byte) string {
	name, _, _ := strings.Cut(string(p[:32]), "\x00")
	return name
}

func exampleCombined() error {
	printInfo("Use case: Real game with multiple allocator types\n\n")

	const maxEntities = 10
	permRegion, err := newRegion(2048)
	if err != nil {
		return err
	}
	entityRegion, err := newRegion(24 * maxEntities)
	if err != nil {
		return err
	}
	frameRegion, err := newRegion(1024)
	if err != nil {
		return err
	}

	permanent, err := alloc.NewFreeList(permRegion, nil)
	if err != nil {
		return err
	}
	entities, err := alloc.NewPool(entityRegion, enemySize, maxEntities, nil)
	if err != nil {
		return err
	}
	frame, err := alloc.NewBump(frameRegion, nil)
	if err != nil {
		return err
	}

	printInfo("Memory layout:\n")
	printInfo("  Permanent (FreeList): %d bytes - long-lived data\n", permanent.Cap())
	printInfo("  Entities (Pool): %d bytes - %d enemies max\n", entityRegion.Len(), entities.BlockCount())
	printInfo("  Frame (Bump): %d bytes - per-frame temporaries\n\n", frame.Cap())

	printInfo("=== INITIALIZATION ===\n")
	sword, swordData, err := permanent.Alloc(itemSize)
	if err != nil {
		return err
	}
	putItem(swordData, "Iron Sword", 1)
	potion, potionData, err := permanent.Alloc(itemSize)
	if err != nil {
		return err
	}
	putItem(potionData, "Health Potion", 2)
	printInfo("Loaded items: %s, %s\n", itemName(swordData), itemName(potionData))
	printInfo("Permanent memory used: %d bytes\n\n", permanent.Used())

	printInfo("=== GAME LOOP (3 frames) ===\n")
	for f := range 3 {
		printInfo("\n--- Frame %d ---\n", f)

		if f == 0 {
			for i := range 3 {
				_, e, err := entities.Alloc()
				if err != nil {
					return err
				}
				binary.LittleEndian.PutUint32(e[0:], uint32(i))
				binary.LittleEndian.PutUint32(e[12:], 100)
				printInfo("  Spawned enemy %d\n", i)
			}
		}

		_, distances, err := frame.Alloc(4 * 10)
		if err != nil {
			return err
		}
		_, logBuf, err := frame.Alloc(256)
		if err != nil {
			return err
		}
		for i := range 10 {
			putF32(distances, i*4, float32(i*10+f))
		}
		n := copy(logBuf, fmt.Sprintf("Frame %d: calculated %d distances", f, 10))
		printInfo("  %s\n", logBuf[:n])

		printInfo("  Frame memory used: %d bytes\n", frame.Used())
		printInfo("  Entities active: %d\n", entities.Used())
		frame.Reset()
	}

	printInfo("\n=== CLEANUP ===\n")
	printInfo("Permanent memory still holding items: %d bytes used\n", permanent.Used())
	if err := permanent.Free(sword); err != nil {
		return err
	}
	if err := permanent.Free(potion); err != nil {
		return err
	}
	printInfo("Items freed, permanent memory used: %d bytes\n", permanent.Used())
	return nil
}
