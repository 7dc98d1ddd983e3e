package handlers

import (
	"encoding/json"
	"net/http"
)

// APITitle names the API in the docs page and the OpenAPI document
const APITitle = "Weather Workbench API"

func queryParam(name, description string, required bool, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    required,
		"schema":      schema,
	}
}

var (
	confirmParam = queryParam("confirm", "Answer yes to every confirmation prompt the operation raises", false,
		map[string]interface{}{"type": "boolean", "default": false})
	startParam = queryParam("start", "First day of the period (YYYY-MM-DD)", true,
		map[string]interface{}{"type": "string", "format": "date"})
	endParam = queryParam("end", "Last day of the period (YYYY-MM-DD)", true,
		map[string]interface{}{"type": "string", "format": "date"})
)

func ref(name string) map[string]string {
	return map[string]string{"$ref": "#/components/schemas/" + name}
}

func jsonResponse(description, schema string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": ref(schema)},
		},
	}
}

func errorResponse(description string) map[string]interface{} {
	return jsonResponse(description, "ErrorResponse")
}

func operation(summary, description string, params []map[string]interface{}, responses map[string]interface{}) map[string]interface{} {
	op := map[string]interface{}{
		"summary":     summary,
		"description": description,
		"responses":   responses,
	}
	if len(params) > 0 {
		op["parameters"] = params
	}
	return op
}

func fileBody() map[string]interface{} {
	return map[string]interface{}{
		"required": false,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": ref("FileRequest")},
		},
	}
}

func periodOperation(summary, schema string) map[string]interface{} {
	return map[string]interface{}{
		"get": operation(summary,
			"Selects the committed records whose dates fall within [start, end]",
			[]map[string]interface{}{startParam, endParam, confirmParam},
			map[string]interface{}{
				"200": jsonResponse("Result for the period", schema),
				"400": errorResponse("Malformed or inverted period"),
				"404": errorResponse("No records fall within the period"),
				"409": errorResponse("Unsaved changes must be confirmed"),
			}),
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Weather Workbench API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       APITitle,
			"description": "Daily weather record editing, analysis and forecasting over plain text record files",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/records": map[string]interface{}{
				"get": operation("Get the committed records",
					"Returns the committed set, its editor table and any staged edit",
					nil,
					map[string]interface{}{"200": jsonResponse("Current session", "TableResponse")}),
			},
			"/api/records/open": map[string]interface{}{
				"post": func() map[string]interface{} {
					op := operation("Open a record file",
						"Replaces the committed set with the file's records. An empty file name opens the default file.",
						[]map[string]interface{}{confirmParam},
						map[string]interface{}{
							"200": jsonResponse("File opened", "OperationResponse"),
							"409": errorResponse("Replacing the table must be confirmed"),
							"422": errorResponse("File is not a valid record file"),
							"500": errorResponse("File could not be read"),
						})
					op["requestBody"] = fileBody()
					return op
				}(),
			},
			"/api/records/save": map[string]interface{}{
				"post": func() map[string]interface{} {
					op := operation("Save the committed records",
						"Writes the committed set. Staged edits are never written.",
						[]map[string]interface{}{confirmParam},
						map[string]interface{}{
							"200": jsonResponse("File written", "OperationResponse"),
							"409": errorResponse("Unsaved changes must be confirmed"),
							"500": errorResponse("File could not be written"),
						})
					op["requestBody"] = fileBody()
					return op
				}(),
			},
			"/api/records/sort-by-season": map[string]interface{}{
				"post": operation("Sort pressure within seasons",
					"Sorts each maximal run of same-season records by ascending pressure",
					[]map[string]interface{}{confirmParam},
					map[string]interface{}{
						"200": jsonResponse("Records sorted", "OperationResponse"),
						"409": errorResponse("Reordering must be confirmed"),
					}),
			},
			"/api/records/forecast": map[string]interface{}{
				"post": operation("Forecast the next month",
					"Appends one sampled record per day of the month after the last committed record",
					[]map[string]interface{}{confirmParam},
					map[string]interface{}{
						"200": jsonResponse("Forecast appended", "OperationResponse"),
						"409": errorResponse("Unsaved changes must be confirmed"),
						"422": errorResponse("No records to forecast from"),
					}),
			},
			"/api/staging": map[string]interface{}{
				"put": func() map[string]interface{} {
					op := operation("Stage a table edit",
						"Stores the editor rows as the pending edit without validating them",
						nil,
						map[string]interface{}{
							"200": jsonResponse("Edit staged", "OperationResponse"),
							"400": errorResponse("Malformed body"),
						})
					op["requestBody"] = map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{"schema": ref("StageRequest")},
						},
					}
					return op
				}(),
				"delete": operation("Discard the staged edit", "", nil,
					map[string]interface{}{"204": map[string]string{"description": "Edit discarded"}}),
			},
			"/api/staging/commit": map[string]interface{}{
				"post": operation("Commit the staged edit",
					"Validates the staged table and makes it the committed set. A rejected edit is discarded.",
					nil,
					map[string]interface{}{
						"200": jsonResponse("Edit committed", "OperationResponse"),
						"422": errorResponse("Staged table is incomplete or violates record constraints"),
					}),
			},
			"/api/analysis/average-temperature": periodOperation("Average temperature over a period", "ValueResponse"),
			"/api/analysis/average-pressure":    periodOperation("Average pressure over a period", "ValueResponse"),
			"/api/analysis/highest-humidity":    periodOperation("Days with the highest humidity in a period", "DatesResponse"),
			"/api/analysis/wind-runs": map[string]interface{}{
				"get": operation("Stable wind runs",
					"Index runs of consecutive records sharing a wind direction",
					nil,
					map[string]interface{}{
						"200": jsonResponse("Runs found", "WindRunsResponse"),
						"409": errorResponse("Unsaved changes must be committed first"),
					}),
			},
			"/api/analysis/periods": map[string]interface{}{
				"get": operation("Bounded drift periods",
					"Periods of at least three records whose temperature and pressure stay within a band of the running average",
					[]map[string]interface{}{
						queryParam("temperature_pct", "Temperature band in percent (default from configuration)", false,
							map[string]interface{}{"type": "number"}),
						queryParam("pressure_pct", "Pressure band in percent (default from configuration)", false,
							map[string]interface{}{"type": "number"}),
						confirmParam,
					},
					map[string]interface{}{
						"200": jsonResponse("Periods found", "PeriodsResponse"),
						"400": errorResponse("Band is not a positive number"),
						"409": errorResponse("Unsaved changes must be confirmed"),
					}),
			},
			"/api/graphs/{field}": map[string]interface{}{
				"get": operation("Graph series",
					"Returns the points a chart of the field is drawn from",
					[]map[string]interface{}{
						{
							"name":     "field",
							"in":       "path",
							"required": true,
							"schema":   map[string]interface{}{"type": "string", "enum": []string{"temperature", "pressure", "humidity"}},
						},
						confirmParam,
					},
					map[string]interface{}{
						"200": jsonResponse("Series", "GraphResponse"),
						"400": errorResponse("Unknown field"),
						"422": errorResponse("Too few records to draw"),
					}),
			},
			"/health": map[string]interface{}{
				"get": operation("Health check", "", nil,
					map[string]interface{}{"200": map[string]string{"description": "Service is healthy"}}),
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Record": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"year":           map[string]string{"type": "integer"},
						"month":          map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 12},
						"day":            map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 31},
						"temperature":    map[string]string{"type": "integer"},
						"pressure":       map[string]interface{}{"type": "integer", "minimum": 1},
						"humidity":       map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 100},
						"wind_direction": map[string]interface{}{"type": "string", "enum": []string{"N", "S", "E", "W", "NE", "NW", "SE", "SW"}},
					},
				},
				"TableResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"records": map[string]interface{}{"type": "array", "items": ref("Record")},
						"table":   map[string]interface{}{"$ref": "#/components/schemas/Table"},
						"dirty":   map[string]string{"type": "boolean"},
						"staged":  map[string]interface{}{"$ref": "#/components/schemas/Table"},
					},
				},
				"Table": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type":     "array",
						"minItems": 7,
						"maxItems": 7,
						"items":    map[string]string{"type": "string"},
					},
				},
				"StageRequest": map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{"rows": ref("Table")},
				},
				"FileRequest": map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{"file": map[string]string{"type": "string"}},
				},
				"OperationResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"records":       map[string]string{"type": "integer"},
						"appended":      map[string]string{"type": "integer"},
						"file":          map[string]string{"type": "string"},
						"notifications": map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
					},
				},
				"ValueResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"value": map[string]string{"type": "number"},
						"start": map[string]string{"type": "string"},
						"end":   map[string]string{"type": "string"},
					},
				},
				"DatesResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"dates": map[string]interface{}{"type": "array", "items": map[string]string{"type": "string", "example": "31.12.2021"}},
					},
				},
				"WindRunsResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"runs": map[string]interface{}{
							"type":  "array",
							"items": map[string]interface{}{"type": "array", "items": map[string]string{"type": "integer"}},
						},
					},
				},
				"PeriodsResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"temperature_pct": map[string]string{"type": "number"},
						"pressure_pct":    map[string]string{"type": "number"},
						"periods": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"start":               map[string]string{"type": "string"},
									"end":                 map[string]string{"type": "string"},
									"average_temperature": map[string]string{"type": "number"},
									"average_pressure":    map[string]string{"type": "number"},
									"records":             map[string]interface{}{"type": "array", "items": ref("Record")},
								},
							},
						},
					},
				},
				"GraphResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"title": map[string]string{"type": "string"},
						"points": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"index": map[string]string{"type": "integer"},
									"value": map[string]string{"type": "number"},
									"label": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
				"ErrorResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":         map[string]string{"type": "string"},
						"message":       map[string]string{"type": "string"},
						"code":          map[string]string{"type": "integer"},
						"row":           map[string]string{"type": "integer"},
						"field":         map[string]string{"type": "string"},
						"constraints":   map[string]string{"type": "string"},
						"notifications": map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
