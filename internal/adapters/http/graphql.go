package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/osoko/wayfind/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to the session service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	poiType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PointOfInterest",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"category":   &graphql.Field{Type: graphql.String},
			"coordinate": &graphql.Field{Type: coordinateType},
			"address":    &graphql.Field{Type: graphql.String},
			"status":     &graphql.Field{Type: graphql.String},
		},
	})

	districtType := graphql.NewObject(graphql.ObjectConfig{
		Name: "District",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"coordinate":  &graphql.Field{Type: coordinateType},
			"covered":     &graphql.Field{Type: graphql.Boolean},
			"population":  &graphql.Field{Type: graphql.String},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ActiveRoute",
		Fields: graphql.Fields{
			"target_ref":        &graphql.Field{Type: graphql.String},
			"distance_text":     &graphql.Field{Type: graphql.String},
			"duration_text":     &graphql.Field{Type: graphql.String},
			"distance_meters":   &graphql.Field{Type: graphql.Float},
			"duration_seconds":  &graphql.Field{Type: graphql.Float},
			"estimated_arrival": &graphql.Field{Type: graphql.DateTime},
			"geometry":          &graphql.Field{Type: graphql.NewList(coordinateType)},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":                    &graphql.Field{Type: graphql.String},
			"state":                 &graphql.Field{Type: graphql.String},
			"current_location":      &graphql.Field{Type: coordinateType},
			"heading":               &graphql.Field{Type: graphql.Float},
			"map_focus":             &graphql.Field{Type: coordinateType},
			"tracking_enabled":      &graphql.Field{Type: graphql.Boolean},
			"active_route":          &graphql.Field{Type: routeType},
			"selected_target_id":    &graphql.Field{Type: graphql.String},
			"points_of_interest":    &graphql.Field{Type: graphql.NewList(poiType)},
			"districts":             &graphql.Field{Type: graphql.NewList(districtType)},
			"city_label":            &graphql.Field{Type: graphql.String},
			"city_population_label": &graphql.Field{Type: graphql.String},
			"loading":               &graphql.Field{Type: graphql.Boolean},
		},
	})

	trackPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TrackPoint",
		Fields: graphql.Fields{
			"at":         &graphql.Field{Type: graphql.DateTime},
			"coordinate": &graphql.Field{Type: coordinateType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Get a session snapshot by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.Snapshot(p.Args["id"].(string))
				},
			},
			"track": &graphql.Field{
				Type:        graphql.NewList(trackPointType),
				Description: "Recorded track of a session",
				Args: graphql.FieldConfigArgument{
					"session_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"offset":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 500},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Tracks == nil {
						return []domain.TrackPoint{}, nil
					}
					sessionID := p.Args["session_id"].(string)
					offset := p.Args["offset"].(int)
					limit := p.Args["limit"].(int)
					return deps.Tracks.List(p.Context, sessionID, offset, limit)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
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
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
