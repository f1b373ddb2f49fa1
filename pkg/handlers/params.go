package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"costlens/pkg/service"
	"costlens/pkg/utils/dateutils"
)

// pathID parses the :id path parameter
func pathID(c *gin.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: id %q", ErrInvalidParam, raw)
	}
	return uint(id), nil
}

// listParam splits comma separated values of a repeated query parameter
func listParam(c *gin.Context, name string) []string {
	var out []string
	for _, raw := range c.QueryArray(name) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func dateParam(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := dateutils.ParseFlexibleDate(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q", ErrInvalidParam, name, raw)
	}
	return &t, nil
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidParam, name, raw)
	}
	return v, nil
}

func floatParam(c *gin.Context, name string) (float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidParam, name, raw)
	}
	return v, nil
}

func boolParam(c *gin.Context, name string) (bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s %q", ErrInvalidParam, name, raw)
	}
	return v, nil
}

// datasetQuery reads the start, end and services filters
func datasetQuery(c *gin.Context) (service.Query, error) {
	start, err := dateParam(c, "start")
	if err != nil {
		return service.Query{}, err
	}
	end, err := dateParam(c, "end")
	if err != nil {
		return service.Query{}, err
	}
	return service.Query{Start: start, End: end, Services: listParam(c, "services")}, nil
}

// multiCloudQuery reads the ids, period, start and end parameters
func multiCloudQuery(c *gin.Context) (service.MultiCloudQuery, error) {
	var q service.MultiCloudQuery
	for _, raw := range listParam(c, "ids") {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return q, fmt.Errorf("%w: ids %q", ErrInvalidParam, raw)
		}
		q.IDs = append(q.IDs, uint(id))
	}
	q.Period = c.Query("period")

	var err error
	if q.Start, err = dateParam(c, "start"); err != nil {
		return q, err
	}
	if q.End, err = dateParam(c, "end"); err != nil {
		return q, err
	}
	return q, nil
}
