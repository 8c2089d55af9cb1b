// Command fsparse is a read-only inspector CLI over this module's FAT and
// Registry parsers: a thin stat/walk dump for poking at images by hand.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/forensicfs/tskfs/common"
	"github.com/forensicfs/tskfs/fat"
	"github.com/forensicfs/tskfs/imgreader"
	"github.com/forensicfs/tskfs/registry"
)

func main() {
	app := cli.App{
		Name:  "fsparse",
		Usage: "Inspect FAT and Windows Registry hive images without mutating them",
		Commands: []*cli.Command{
			{
				Name:      "stat",
				Usage:     "Print the derived geometry/header of a FAT or Registry image",
				ArgsUsage: "IMAGE_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Value: "fat", Usage: "fat or registry"},
					&cli.Int64Flag{Name: "offset", Value: 0, Usage: "byte offset of the fs/hive start"},
					&cli.BoolFlag{Name: "allow-xtaf-table", Usage: "permit the opt-in XTAF size-keyed geometry fallback"},
				},
				Action: statImage,
			},
			{
				Name:      "walk",
				Usage:     "Block-walk a FAT or Registry image, printing one line per visited block",
				ArgsUsage: "IMAGE_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Value: "fat", Usage: "fat or registry"},
					&cli.Int64Flag{Name: "offset", Value: 0, Usage: "byte offset of the fs/hive start"},
				},
				Action: walkImage,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func openImageFile(path string) (imgreader.ImageReader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return imgreader.New(f, info.Size()), f, nil
}

func statImage(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("expected exactly one IMAGE_FILE argument", 1)
	}

	reader, f, err := openImageFile(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer f.Close()

	switch c.String("kind") {
	case "registry":
		fs, err := registry.Open(reader, c.Int64("offset"), registry.OpenOptions{})
		if err != nil {
			return cli.Exit(err.Error(), 3)
		}
		defer fs.Close()
		h := fs.Header()
		fmt.Printf("hive name:         %s\n", h.HiveName)
		fmt.Printf("version:           %d.%d\n", h.MajorVersion, h.MinorVersion)
		fmt.Printf("sequence numbers:  %d / %d\n", h.Seq1, h.Seq2)
		fmt.Printf("first key offset:  0x%x\n", h.FirstKeyOffset)
		fmt.Printf("last hbin offset:  0x%x\n", h.LastHbinOffset)
		return nil
	default:
		opts := fat.OpenOptions{AllowXTAFSizeTable: c.Bool("allow-xtaf-table")}
		fs, err := fat.Open(reader, c.Int64("offset"), opts)
		if err != nil {
			return cli.Exit(err.Error(), 3)
		}
		defer fs.Close()
		g := fs.Geometry()
		fmt.Printf("flavor:             %s\n", g.Flavor)
		fmt.Printf("sector size:        %d\n", g.SectorSize)
		fmt.Printf("sectors/cluster:    %d\n", g.ClusterSizeSectors)
		fmt.Printf("number of FATs:     %d\n", g.NumberOfFATs)
		fmt.Printf("first FAT sector:   %d\n", g.FirstFATSector)
		fmt.Printf("first data sector:  %d\n", g.FirstDataSector)
		fmt.Printf("first clust sector: %d\n", g.FirstClusterSector)
		fmt.Printf("cluster count:      %d\n", g.ClusterCount)
		fmt.Printf("last cluster:       %d\n", g.LastCluster)
		fmt.Printf("last block:         %d\n", g.LastBlock)
		return nil
	}
}

func walkImage(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("expected exactly one IMAGE_FILE argument", 1)
	}

	reader, f, err := openImageFile(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer f.Close()

	printBlock := func(view common.BlockView, userPtr any) common.WalkAction {
		fmt.Printf("%d\t%s\n", view.Addr, describeFlags(view.Flags))
		return common.WalkContinue
	}

	switch c.String("kind") {
	case "registry":
		fs, err := registry.Open(reader, c.Int64("offset"), registry.OpenOptions{})
		if err != nil {
			return cli.Exit(err.Error(), 3)
		}
		defer fs.Close()
		last := fs.Header().LastHbinOffset / registry.HbinSize
		return fs.BlockWalk(context.Background(), 1, common.SectorID(last+1), 0, printBlock, nil)
	default:
		fs, err := fat.Open(reader, c.Int64("offset"), fat.OpenOptions{})
		if err != nil {
			return cli.Exit(err.Error(), 3)
		}
		defer fs.Close()
		g := fs.Geometry()
		return fs.BlockWalk(context.Background(), 0, g.LastBlock, 0, printBlock, nil)
	}
}

func describeFlags(flags common.BlockFlag) string {
	s := ""
	if flags.Has(common.FlagAlloc) {
		s += "ALLOC|"
	}
	if flags.Has(common.FlagUnalloc) {
		s += "UNALLOC|"
	}
	if flags.Has(common.FlagMeta) {
		s += "META|"
	}
	if flags.Has(common.FlagCont) {
		s += "CONT|"
	}
	if flags.Has(common.FlagRaw) {
		s += "RAW|"
	}
	if s == "" {
		return "-"
	}
	return s[:len(s)-1]
}
