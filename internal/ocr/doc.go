// Package ocr provides Optical Character Recognition (OCR) using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2) for two
// consumers: the image_ocr_full MCP tool, which wants the full text, and the
// "ocr" detector, which turns each recognised word into a detection labelled
// with the word so it can be merged with another detector's output.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr
//   - macOS: brew install tesseract
//   - Windows: Download from https://github.com/UB-Mannheim/tesseract/wiki
//
// Language data files are required for each language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr-eng (for English)
//   - Other languages: tesseract-ocr-<lang> packages
//
// # Supported Languages
//
// The default language is English ("eng", see DefaultLanguage). Other languages
// are selected with their Tesseract language codes, either per call or through
// HYBRID_OCR_LANGUAGE:
//   - "eng" - English
//   - "deu" - German
//   - "fra" - French
//   - "spa" - Spanish
//   - "chi_sim" - Chinese (Simplified)
//   - See Tesseract documentation for full list
//
// # Functions
//
//   - ExtractText: OCR on an image file, returns all text with word boxes
//   - Recognize: OCR on an in-memory image such as a capture frame or a
//     cascade crop; word boxes stay in the image's coordinate space
//   - Result.Detections: word boxes as a detection.List
//
// # Confidence
//
// Tesseract reports word confidence on a 0-100 scale, sometimes outside it.
// Word.Confidence is divided by 100 and clamped to [0, 1] so OCR detections
// can be averaged with other detectors' scores.
//
// # Performance Considerations
//
// OCR is computationally expensive. For video input:
//   - Downscale frames first (run --width)
//   - Use OCR as the secondary detector in cascade mode, so Tesseract only
//     sees the regions the primary detector found
//
// Every call opens and closes its own gosseract client, since a client is not
// safe for concurrent use.
//
// # Error Handling
//
// Functions return errors for:
//   - Missing or invalid image files
//   - Unsupported language codes
//   - Tesseract initialization failures
//
// If bounding box extraction fails (e.g., Tesseract version mismatch),
// the result still carries the extracted text with an empty Words slice, and
// Detections returns an empty list.
package ocr
