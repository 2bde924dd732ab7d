// Package dlsite scrapes DLsite product pages.
//
// A product page lives at {base_url}/{CODE}.html. The client sends the
// adultconfirmed cookie so the age gate is skipped, plus any extra cookies from
// configuration, and optionally routes through a proxy. Status 404 maps to
// scraper.ErrNotFound; every other failure (network, 429/5xx, an
// age-verification redirect) maps to scraper.ErrTransient. Retries are left to
// scraper.Retrying.
package dlsite
