package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/landplot/internal/core/domain"
)

// landPage is the result of the lands query.
type landPage struct {
	Total int           `json:"total"`
	Lands []domain.Land `json:"lands"`
}

// buildSchema creates the GraphQL schema wired to the land service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	coordinateInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CoordinateInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lng": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	landType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Land",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"title":       &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: graphql.String},
			"size":        &graphql.Field{Type: graphql.String},
			"owner":       &graphql.Field{Type: graphql.String},
			"landType":    &graphql.Field{Type: graphql.String},
			"marketValue": &graphql.Field{Type: graphql.String},
			"notes":       &graphql.Field{Type: graphql.String},
			"polygons":    &graphql.Field{Type: graphql.NewList(graphql.NewList(coordinateType))},
			"created_at":  &graphql.Field{Type: graphql.DateTime},
			"updated_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	landPageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LandPage",
		Fields: graphql.Fields{
			"total": &graphql.Field{Type: graphql.Int},
			"lands": &graphql.Field{Type: graphql.NewList(landType)},
		},
	})

	landAreaType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LandArea",
		Fields: graphql.Fields{
			"land_id":     &graphql.Field{Type: graphql.Int},
			"polygons_m2": &graphql.Field{Type: graphql.NewList(graphql.Float)},
			"total_m2":    &graphql.Field{Type: graphql.Float},
		},
	})

	idArg := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"lands": &graphql.Field{
				Type:        landPageType,
				Description: "Search land records",
				Args: graphql.FieldConfigArgument{
					"q":        &graphql.ArgumentConfig{Type: graphql.String},
					"owner":    &graphql.ArgumentConfig{Type: graphql.String},
					"type":     &graphql.ArgumentConfig{Type: graphql.String},
					"minPrice": &graphql.ArgumentConfig{Type: graphql.Int},
					"maxPrice": &graphql.ArgumentConfig{Type: graphql.Int},
					"minSize":  &graphql.ArgumentConfig{Type: graphql.Int},
					"maxSize":  &graphql.ArgumentConfig{Type: graphql.Int},
					"offset":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					str := func(k string) string { s, _ := p.Args[k].(string); return s }
					num := func(k string) int64 { n, _ := p.Args[k].(int); return int64(n) }
					filter := domain.LandFilter{
						Query:    str("q"),
						Owner:    str("owner"),
						LandType: str("type"),
						MinPrice: num("minPrice"),
						MaxPrice: num("maxPrice"),
						MinSize:  num("minSize"),
						MaxSize:  num("maxSize"),
						Offset:   int(num("offset")),
						Limit:    int(num("limit")),
					}
					lands, total, err := deps.Lands.List(p.Context, filter)
					if err != nil {
						return nil, err
					}
					return landPage{Total: total, Lands: lands}, nil
				},
			},
			"land": &graphql.Field{
				Type:        landType,
				Description: "Get a land record by ID",
				Args:        idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(int)
					return deps.Lands.GetByID(p.Context, int64(id))
				},
			},
			"landArea": &graphql.Field{
				Type:        landAreaType,
				Description: "Geodesic area of a land's polygons in square meters",
				Args:        idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(int)
					return deps.Lands.Area(p.Context, int64(id))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"replacePolygons": &graphql.Field{
				Type:        landType,
				Description: "Overwrite the whole polygon collection of a land record",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"polygons": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(
							graphql.NewList(graphql.NewNonNull(coordinateInput))))),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(int)
					polys, err := polygonsArg(p.Args["polygons"])
					if err != nil {
						return nil, err
					}
					if err := validatePolygons(polys); err != nil {
						return nil, err
					}
					if err := deps.Lands.ReplacePolygons(p.Context, int64(id), polys); err != nil {
						return nil, err
					}
					return deps.Lands.GetByID(p.Context, int64(id))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func polygonsArg(raw interface{}) ([]domain.Polygon, error) {
	rings, ok := raw.([]interface{})
	if !ok {
		return nil, errors.New("polygons must be a list")
	}
	out := make([]domain.Polygon, 0, len(rings))
	for _, r := range rings {
		pts, ok := r.([]interface{})
		if !ok {
			return nil, errors.New("each polygon must be a list of coordinates")
		}
		poly := make(domain.Polygon, 0, len(pts))
		for _, pt := range pts {
			m, ok := pt.(map[string]interface{})
			if !ok {
				return nil, errors.New("invalid coordinate")
			}
			lat, _ := m["lat"].(float64)
			lng, _ := m["lng"].(float64)
			poly = append(poly, domain.Coordinate{Lat: lat, Lng: lng})
		}
		out = append(out, poly)
	}
	return out, nil
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
