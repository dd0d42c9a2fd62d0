// =============================================================================
// CI Load Engine - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the generate command:
//   - Snapshot discovery in the input directory
//   - Input archival (moving delivered snapshots)
//   - Output file naming
//   - Per-file error logs and run summaries
//
// ARCHIVAL STRATEGY:
//   - Snapshots are moved to input_archive after their document was delivered
//   - Failed snapshots remain in the input directory for the next run
//   - Error logs and summaries are written to the error directory
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SnapshotExtensions are the input file types the generate command reads.
var SnapshotExtensions = []string{".yaml", ".yml", ".csv"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations around a generation run.
type FileManager struct {
	InputDir        string
	InputArchiveDir string
	ErrorDir        string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2024/01/15/entry.yaml
	UseTimestampSubdirs bool

	// ArchiveOnSuccess moves delivered snapshots out of the input directory.
	ArchiveOnSuccess bool

	now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, inputArchiveDir, errorDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		InputArchiveDir:  inputArchiveDir,
		ErrorDir:         errorDir,
		ArchiveOnSuccess: true,
		now:              time.Now,
	}
}

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.InputArchiveDir, fm.ErrorDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles returns the snapshot files in the input directory,
// sorted by name. Hidden files and subdirectories are skipped.
func (fm *FileManager) DiscoverInputFiles() ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if IsSnapshotFile(name) {
			files = append(files, filepath.Join(fm.InputDir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// IsSnapshotFile reports whether the file name has a snapshot extension.
func IsSnapshotFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SnapshotExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess || fm.InputArchiveDir == "" {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device moves fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}
	return archivePath, nil
}

func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)
	if fm.UseTimestampSubdirs {
		now := fm.now()
		return filepath.Join(archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName)
	}
	return filepath.Join(archiveDir, fileName)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName expands an output name format.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Date (YYYYMMDD)
//               {cust}      - Customer number
//               {file}      - File number
//               {dialect}   - Output dialect name
//   - params: Values for the named placeholders (cust, file, dialect).
//   - now: The timestamp to render.
//
// RETURNS:
//   - The generated file name. Path separators in values are replaced so the
//     result is always a single path element.
//
// EXAMPLE:
//   format: "{cust}_{file}_{timestamp}.{dialect}"
//   params: {"cust": "ACME01", "file": "F-1001", "dialect": "xml"}
//   output: "ACME01_F-1001_20240115_143022.xml"
func GenerateOutputFileName(format string, params map[string]string, now time.Time) string {
	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = sanitizeName(value)
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return sanitizeName(result)
}

var nameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")

func sanitizeName(s string) string {
	return nameReplacer.Replace(strings.TrimSpace(s))
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry is one problem recorded for an input file.
type ErrorLogEntry struct {
	Timestamp  time.Time
	ErrorType  string
	Message    string
	Invoice    string
	Line       int
	PartNumber string
}

// WriteErrorLog writes the error entries of one input file next to the other
// logs, named after the input file.
//
// RETURNS:
//   - The path to the error log file, or "" when there was nothing to write.
//   - An error if writing fails.
func (fm *FileManager) WriteErrorLog(inputFile string, entries []ErrorLogEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	now := fm.now()
	base := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
	logPath := filepath.Join(fm.ErrorDir, fmt.Sprintf("%s_errors_%s.txt", base, now.Format("20060102_150405")))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "CI Load Engine - Error Log\n"+
		"File: %s\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		filepath.Base(inputFile), now.Format("2006-01-02 15:04:05"), len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:  %s\n"+
			"  Error Type: %s\n"+
			"  Message:    %s\n",
			i+1, entry.Timestamp.Format("2006-01-02 15:04:05"), entry.ErrorType, entry.Message)
		if entry.Invoice != "" {
			fmt.Fprintf(writer, "  Invoice:    %s\n", entry.Invoice)
		}
		if entry.Line > 0 {
			fmt.Fprintf(writer, "  Line:       %d\n", entry.Line)
		}
		if entry.PartNumber != "" {
			fmt.Fprintf(writer, "  Part:       %s\n", entry.PartNumber)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a generation run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	Invoices        int
	Lines           int
	LinesSkipped    int
	Tariffs         int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo describes a delivered document.
type ProcessedFileInfo struct {
	InputFile   string
	Location    string
	Entry       string
	Invoices    int
	Lines       int
	ProcessTime time.Duration
}

// FailedFileInfo describes a file that produced no document.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes a run summary to the error directory.
func (fm *FileManager) WriteSummaryLog(summary ProcessingSummary) (string, error) {
	summaryPath := filepath.Join(fm.ErrorDir,
		fmt.Sprintf("processing_summary_%s.txt", fm.now().Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "CI Load Engine - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Invoices:       %d\n"+
		"  Lines:          %d\n"+
		"  Lines Skipped:  %d\n"+
		"  Tariffs:        %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.Invoices,
		summary.Lines,
		summary.LinesSkipped,
		summary.Tariffs)

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Successful Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Entry:        %s\n", pf.Entry)
			fmt.Fprintf(writer, "  Delivered To: %s\n", pf.Location)
			fmt.Fprintf(writer, "  Invoices:     %d\n", pf.Invoices)
			fmt.Fprintf(writer, "  Lines:        %d\n", pf.Lines)
			fmt.Fprintf(writer, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}
