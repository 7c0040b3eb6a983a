// Package app provides the main application logic for downloading audio from TIDAL URLs.
// It initializes the necessary components, such as the TIDAL client, the catalog session,
// the URL processor and the template manager, and orchestrates the download process.
package app
