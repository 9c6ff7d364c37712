package catchapi

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/catcha-app/geotag/internal/model"
	"github.com/catcha-app/geotag/pkg/errors"
)

// WebCreateURL builds the browser URL for the manual catch form, prefilled
// from a location sample. An explicit override wins over the conventional
// {base}/catches/create path.
func WebCreateURL(baseURL, override string, loc model.LocationSample) (string, error) {
	createURL := override
	if createURL == "" {
		base := strings.TrimRight(baseURL, "/")
		if base == "" {
			return "", errors.ErrNoAPIBaseURL
		}
		createURL = base + "/catches/create"
	}

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.6f", loc.Latitude))
	params.Set("longitude", fmt.Sprintf("%.6f", loc.Longitude))
	params.Set("geohash", loc.Geohash)
	if loc.Accuracy != nil {
		params.Set("geo_accuracy_m", strconv.Itoa(int(math.Round(*loc.Accuracy))))
	}
	params.Set("geo_source", string(loc.Source))

	return createURL + "?" + params.Encode(), nil
}
