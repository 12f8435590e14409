package app_test

import "strings"

const sheetHeader = "Visible,Categoría (ES),Category (EN),Nombre (ES),Name (EN),Descripción (ES),Description (EN),Precio (€),Imagen URL,Sugerencia del Chef,Alérgenos"

// sampleSheet has three emitted rows (lines 2, 5 and 9), two hidden, one invalid
// and one short line.
var sampleSheet = strings.Join([]string{
	sheetHeader,
	`TRUE,Entrantes,Starters,Sopa,Tomato Soup,"Sopa de tomate, casera","Tomato soup, homemade","12,50",https://img.example.com/soup.jpg,Sí,"Gluten, Celery"`,
	`FALSE,Postres,Desserts,Flan,Flan,Flan casero,Homemade flan,5,,,`,
	`0,Bebidas,Drinks,Agua,Water,,,2,,,`,
	`,Principales,Main Courses,Plato del día,Delicious Food,,,N/A,not a url,no,`,
	``,
	`TRUE,Postres,Desserts,Tarta,,,,4,,,`,
	`TRUE,Bebidas,Drinks,Vino`,
	`true,Especiales,Chef's Specials,Especial,Grilled Octopus Plate,,,abc,FALSE,1,`,
}, "\r\n")
