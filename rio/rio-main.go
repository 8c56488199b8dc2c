package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/airbusgeo/osio"
	"github.com/airbusgeo/rastio"
	"github.com/spf13/cobra"
)

func gsparse(file string) (bucket, object string) {
	if !strings.HasPrefix(file, "gs://") {
		return
	}
	file = file[5:]
	firstSlash := strings.Index(file, "/")
	if firstSlash == -1 {
		return
	}
	obj := strings.Trim(file[firstSlash:], "/")
	if obj == "" {
		return
	}
	bucket = file[0:firstSlash]
	object = obj
	return
}

// parseWindow parses "row,col,height,width" with fractional values allowed
func parseWindow(s string) (rastio.Window, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return rastio.Window{}, fmt.Errorf("window must be row,col,height,width, got %q", s)
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return rastio.Window{}, fmt.Errorf("window element %q: %w", p, err)
		}
		vals[i] = v
	}
	return rastio.NewWindow(vals[0], vals[1], vals[2], vals[3]), nil
}

// parseBands parses a comma separated list of 1-based band indexes, "" being
// all bands
func parseBands(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var bands []int
	for _, p := range strings.Split(s, ",") {
		b, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("band %q: %w", p, err)
		}
		bands = append(bands, b)
	}
	return bands, nil
}

var blockSize string
var numCachedBlocks int
var window string
var bandList string
var fill float64
var boundless bool
var masked bool
var outfile string

func init() {
	for _, cmd := range []*cobra.Command{infoCommand, extractCommand} {
		cmd.Flags().StringVarP(&blockSize, "gs.blocksize", "b", "512k", "gs:// block size")
		cmd.Flags().IntVarP(&numCachedBlocks, "gs.numblocks", "n", 512, "number of gs:// blocks to cache")
		rootCommand.AddCommand(cmd)
	}
	extractCommand.Flags().StringVarP(&window, "window", "w", "", "window to extract as row,col,height,width")
	extractCommand.Flags().StringVar(&bandList, "bands", "", "comma separated 1-based bands to extract")
	extractCommand.Flags().Float64Var(&fill, "fill", 0, "fill value for boundless reads")
	extractCommand.Flags().BoolVar(&boundless, "boundless", false, "allow the window to extend beyond the dataset")
	extractCommand.Flags().BoolVar(&masked, "masked", false, "fill invalid pixels instead of reading them raw")
	extractCommand.Flags().StringVarP(&outfile, "out", "o", "out.npy", "output file name")
}

func main() {
	err := rootCommand.Execute()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var rootCommand = &cobra.Command{
	Use:   "rio",
	Short: "windowed access to npy rasters, local or on cloud storage",
}

func open(cmd *cobra.Command, file string) (*rastio.Dataset, error) {
	bucket, object := gsparse(file)
	if bucket == "" {
		return rastio.OpenNpyFile(file)
	}
	ctx := cmd.Context()
	stcl, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs storage client: %w", err)
	}
	gs, err := osio.GCSHandle(ctx, osio.GCSClient(stcl))
	if err != nil {
		return nil, fmt.Errorf("osio.gcshandle: %w", err)
	}
	gsa, err := osio.NewAdapter(gs, osio.BlockSize(blockSize), osio.NumCachedBlocks(numCachedBlocks))
	if err != nil {
		return nil, fmt.Errorf("osio.newadapter: %w", err)
	}
	r, err := gsa.Reader(bucket + "/" + object)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", bucket, object, err)
	}
	return rastio.OpenNpy(r)
}

var infoCommand = &cobra.Command{
	Use:   "info infile",
	Short: "print dataset structure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := open(cmd, args[0])
		if err != nil {
			return err
		}
		defer ds.Close()
		st := ds.Structure()
		fmt.Printf("size: %dx%d\n", st.SizeX, st.SizeY)
		fmt.Printf("bands: %d\n", st.NBands)
		for _, band := range ds.Bands() {
			line := fmt.Sprintf("band %d: %s", band.Index(), band.DataType())
			if nd, ok := band.NoData(); ok {
				line += fmt.Sprintf(" nodata=%g", nd)
			}
			fmt.Println(line)
		}
		fmt.Printf("geotransform: %v\n", ds.GeoTransform())
		return nil
	},
}

var extractCommand = &cobra.Command{
	Use:   "extract [flags] infile",
	Short: "extract a window of a raster to a npy file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := open(cmd, args[0])
		if err != nil {
			return err
		}
		defer ds.Close()

		bands, err := parseBands(bandList)
		if err != nil {
			return err
		}
		var opts []rastio.ReadOption
		if window != "" {
			win, err := parseWindow(window)
			if err != nil {
				return err
			}
			opts = append(opts, rastio.Windowed(win))
		}
		if boundless {
			opts = append(opts, rastio.Boundless())
		}
		if masked {
			opts = append(opts, rastio.Masked())
		}
		if cmd.Flags().Changed("fill") {
			opts = append(opts, rastio.FillValue(fill))
		}
		arr, err := ds.ReadBands(bands, opts...)
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		var outw io.WriteCloser
		ob, oo := gsparse(outfile)
		if ob == "" {
			outw, err = os.Create(outfile)
			if err != nil {
				return fmt.Errorf("create %s: %w", outfile, err)
			}
		} else {
			stcl, err := storage.NewClient(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to create gcs storage client: %w", err)
			}
			outw = stcl.Bucket(ob).Object(oo).NewWriter(cmd.Context())
		}
		if err = rastio.WriteNpy(outw, arr); err != nil {
			return fmt.Errorf("write %s: %w", outfile, err)
		}
		if err = outw.Close(); err != nil {
			return fmt.Errorf("close %s: %w", outfile, err)
		}
		return nil
	},
}
