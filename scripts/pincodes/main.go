package main

import (
	"compress/gzip"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Writes gzipped serviceable pincode files for local runs.
// The checker accepts a pincode found in any file, so metros.gz and
// tier2.gz together cover every code below; 799001 is left out on purpose.
func main() {
	dataDir := flag.String("dir", "data/pincodes", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	files := map[string][]string{
		"metros.gz": {
			"110001", // New Delhi
			"400001", // Mumbai
			"560001", // Bengaluru
			"600001", // Chennai
			"700001", // Kolkata
		},
		"tier2.gz": {
			"302001", // Jaipur
			"380001", // Ahmedabad
			"411001", // Pune
			"500001", // Hyderabad
			"641001", // Coimbatore
		},
	}

	for filename, pincodes := range files {
		path := filepath.Join(*dataDir, filename)
		if err := writePincodeFile(path, pincodes); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}
		fmt.Printf("Created %s with %d pincodes\n", path, len(pincodes))
	}

	fmt.Printf("\nSet PINCODE_FILES=%s,%s to use them.\n",
		filepath.Join(*dataDir, "metros.gz"), filepath.Join(*dataDir, "tier2.gz"))
	fmt.Println("Unserviceable example: 799001")
}

func writePincodeFile(path string, pincodes []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	for _, p := range pincodes {
		if _, err := fmt.Fprintf(gzipWriter, "%s\n", p); err != nil {
			return fmt.Errorf("failed to write pincode: %w", err)
		}
	}
	return gzipWriter.Close()
}
